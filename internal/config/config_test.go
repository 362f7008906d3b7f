package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "token", c.Auth.Strategy)
	require.Equal(t, "memory", c.Storage.Driver)
	require.Equal(t, 15*time.Minute, c.AccessTTL())
	require.Equal(t, 720*time.Hour, c.RefreshTTL())
	require.Equal(t, 24*time.Hour, c.SessionTTL())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
auth:
  strategy: session
`)
	t.Setenv("SERVER_ADDR", ":7000")
	t.Setenv("SESSION_TTL", "1h")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", c.Server.Addr, "env must win over file")
	require.Equal(t, "session", c.Auth.Strategy)
	require.Equal(t, time.Hour, c.SessionTTL())
}

func TestLoadEnvOverrideToEmpty(t *testing.T) {
	path := writeConfig(t, `
auth:
  strategy: session
  session:
    cookie_name: custom_sid
`)
	t.Setenv("SESSION_COOKIE_NAME", "")

	c, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, c.Auth.Session.CookieName,
		"an env var explicitly set to empty must clear the file value")
}

func TestLoadValidation(t *testing.T) {
	t.Run("unknown strategy", func(t *testing.T) {
		_, err := Load(writeConfig(t, "auth:\n  strategy: magic\n"))
		require.Error(t, err)
	})

	t.Run("token strategy needs a real secret", func(t *testing.T) {
		_, err := Load(writeConfig(t, "jwt:\n  secret: short\n"))
		require.Error(t, err)
	})

	t.Run("postgres needs a dsn", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
auth:
  strategy: session
storage:
  driver: postgres
`))
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
auth:
  strategy: session
  session:
    ttl: soon
`))
		require.Error(t, err)
	})
}
