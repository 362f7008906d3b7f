package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewCodec_ShortSecret(t *testing.T) {
	_, err := NewCodec([]byte("short"))
	require.Error(t, err)
}

func TestMintParse_RoundTrip(t *testing.T) {
	c, err := NewCodec(testSecret)
	require.NoError(t, err)

	signed, err := c.Mint("Johny", time.Minute, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	cl, err := c.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "Johny", cl.Subject)
	require.True(t, cl.Expires.After(cl.IssuedAt))
}

func TestMint_UniquePerCall(t *testing.T) {
	c, _ := NewCodec(testSecret)
	now := time.Now()

	a, err := c.Mint("Johny", time.Minute, now)
	require.NoError(t, err)
	b, err := c.Mint("Johny", time.Minute, now)
	require.NoError(t, err)

	// Same subject, same instant: the jti must still keep them apart.
	require.NotEqual(t, a, b)
}

func TestParse_Expired(t *testing.T) {
	c, _ := NewCodec(testSecret)

	// Minted already expired: exp = now - 2s.
	signed, err := c.Mint("Johny", -2*time.Second, time.Now())
	require.NoError(t, err)

	_, err = c.Parse(signed)
	require.ErrorIs(t, err, ErrExpired)
}

func TestParse_Malformed(t *testing.T) {
	c, _ := NewCodec(testSecret)

	_, err := c.Parse("not.a.jwt")
	require.ErrorIs(t, err, ErrMalformed)

	// Valid structure, wrong signature.
	other, _ := NewCodec([]byte("ffffffffffffffffffffffffffffffff"))
	signed, _ := other.Mint("Johny", time.Minute, time.Now())
	_, err = c.Parse(signed)
	require.ErrorIs(t, err, ErrMalformed)
}

// Expired and malformed must stay distinguishable: an expired token is not
// reported as malformed and vice versa.
func TestParse_ExpiredIsNotMalformed(t *testing.T) {
	c, _ := NewCodec(testSecret)
	signed, _ := c.Mint("Johny", -time.Second, time.Now())

	_, err := c.Parse(signed)
	require.ErrorIs(t, err, ErrExpired)
	require.NotErrorIs(t, err, ErrMalformed)

	tampered := signed[:strings.LastIndex(signed, ".")] + ".AAAA"
	_, err = c.Parse(tampered)
	require.ErrorIs(t, err, ErrMalformed)
	require.NotErrorIs(t, err, ErrExpired)
}
