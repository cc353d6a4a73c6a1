package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef0123")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, "customer", cfg.DefaultRole)
	assert.True(t, cfg.SeedOnStart)
	assert.False(t, cfg.IsProduction())

	tokens := cfg.TokenConfig()
	assert.Equal(t, "taskdesk", tokens.Issuer)
	assert.Equal(t, []byte("0123456789abcdef0123"), tokens.Secret)
	assert.Equal(t, "admin@taskdesk.local", cfg.AdminConfig().Email)

	pool := cfg.PoolOptions("worker")
	assert.Equal(t, "taskdesk-worker", pool.ApplicationName)
	assert.Equal(t, int32(10), pool.MaxConns)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("AUTH_SECRET", "short")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			AuthSecret:             "0123456789abcdef",
			SessionTTL:             time.Hour,
			ResetTokenTTL:          time.Minute,
			DefaultRole:            "customer",
			BootstrapAdminPassword: "s3cret-pass",
			AuditRetentionDays:     30,
			LogFormat:              "json",
		}
	}
	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(*Config){
		"zero session ttl":     func(c *Config) { c.SessionTTL = 0 },
		"blank default role":   func(c *Config) { c.DefaultRole = "  " },
		"short admin password": func(c *Config) { c.BootstrapAdminPassword = "abc" },
		"default in prod": func(c *Config) {
			c.AppEnv = "production"
			c.BootstrapAdminPassword = defaultAdminPassword
		},
		"unknown log format": func(c *Config) { c.LogFormat = "xml" },
		"no retention":       func(c *Config) { c.AuditRetentionDays = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
