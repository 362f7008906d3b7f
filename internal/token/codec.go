// Package token mints and verifies the signed access/refresh tokens used by
// the token authentication strategy. Tokens are HS256 JWTs signed with a
// process-wide secret and carry {sub, iat, exp, jti}.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired means the signature checked out but the token is past exp.
	// Callers surface it distinctly so clients know to refresh.
	ErrExpired = errors.New("token expired")

	// ErrMalformed covers bad structure, bad signature and wrong algorithm.
	ErrMalformed = errors.New("token malformed")
)

// Claims is the verified payload of an access or refresh token.
type Claims struct {
	Subject  string
	IssuedAt time.Time
	Expires  time.Time
}

// Codec signs and verifies token pairs with a shared HMAC secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a Codec. The secret must be at least 32 bytes for HS256.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Codec{secret: secret}, nil
}

// Mint signs a token for subject with the given lifetime. Timestamps are UTC;
// expiry is issuedAt + ttl with no skew compensation. The jti keeps two mints
// for the same subject in the same second from colliding, which rotation
// relies on.
func (c *Codec) Mint(subject string, ttl time.Duration, now time.Time) (string, error) {
	now = now.UTC()
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	})
	signed, err := tk.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims.
// Expired-but-valid tokens return ErrExpired; everything else that fails
// verification returns ErrMalformed.
func (c *Codec) Parse(raw string) (*Claims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}

	tok, err := jwtv5.Parse(raw, keyfunc, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}

	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrMalformed
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, ErrMalformed
	}

	cl := &Claims{Subject: sub}
	if iat, ok := mc["iat"].(float64); ok {
		cl.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := mc["exp"].(float64); ok {
		cl.Expires = time.Unix(int64(exp), 0).UTC()
	}
	return cl, nil
}
