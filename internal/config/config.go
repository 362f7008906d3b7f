// Package config loads the service configuration from YAML with environment
// overrides on top. Env always wins, so deployments can ship one file and
// tune per instance.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// RequireHTTPS turns on the permanent redirect of plain-HTTP
		// requests. Keep off for local development.
		RequireHTTPS bool `yaml:"require_https"`
	} `yaml:"server"`

	Auth struct {
		// token | session | delegated
		Strategy string `yaml:"strategy"`
		Session  struct {
			CookieName string `yaml:"cookie_name"`
			TTL        string `yaml:"ttl"`
		} `yaml:"session"`
	} `yaml:"auth"`

	JWT struct {
		Secret     string `yaml:"secret"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Storage struct {
		// memory | redis | postgres
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the YAML file at path (optional, "" means defaults only),
// applies defaults and env overrides, and validates the result.
func Load(path string) (*Config, error) {
	var c Config
	// Booleans that default to on must be set before unmarshalling so a
	// file that omits them keeps the default.
	c.Metrics.Enabled = true
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Auth.Strategy == "" {
		c.Auth.Strategy = "token"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "authgate_session"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "24h"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvBool("SERVER_REQUIRE_HTTPS"); ok {
		c.Server.RequireHTTPS = v
	}
	if v, ok := getEnvStr("AUTH_STRATEGY"); ok {
		c.Auth.Strategy = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Auth.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Storage.Redis.DB = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Auth.Strategy {
	case "token", "session", "delegated":
	default:
		return fmt.Errorf("config: unknown auth strategy %q", c.Auth.Strategy)
	}

	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("config: redis driver requires storage.redis.addr")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: postgres driver requires storage.dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.Strategy == "token" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("config: token strategy requires a jwt secret of at least 32 bytes")
	}

	for name, s := range map[string]string{
		"auth.session.ttl": c.Auth.Session.TTL,
		"jwt.access_ttl":   c.JWT.AccessTTL,
		"jwt.refresh_ttl":  c.JWT.RefreshTTL,
	} {
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: invalid duration for %s: %w", name, err)
		}
	}
	return nil
}

// Duration accessors; Validate already proved these parse.

func (c *Config) SessionTTL() time.Duration { return mustDur(c.Auth.Session.TTL) }
func (c *Config) AccessTTL() time.Duration  { return mustDur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration { return mustDur(c.JWT.RefreshTTL) }

func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// getEnvStr distinguishes unset from set-to-empty, so a deployment can
// override a file value back to empty (and let a downstream default apply).
func getEnvStr(key string) (string, bool) {
	return os.LookupEnv(key)
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
