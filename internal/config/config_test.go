package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "token", cfg.Auth.TokenQueryParam)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Cache.Address)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			WebSocket: WebSocketConfig{
				PingInterval: 30 * time.Second,
				PongWait:     60 * time.Second,
				SendBuffer:   256,
			},
			Auth: AuthConfig{
				JWTSecret:       "secret",
				TokenQueryParam: "token",
			},
			Storage: StorageConfig{Backend: "local"},
		}
	}
	// Backend-specific fields.
	base := valid()
	base.Storage.Local.BasePath = "./uploads"
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"missing token param", func(c *Config) { c.Auth.TokenQueryParam = "" }},
		{"ping not under pong wait", func(c *Config) { c.WebSocket.PingInterval = c.WebSocket.PongWait }},
		{"zero send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"local backend without path", func(c *Config) { c.Storage.Local.BasePath = "" }},
		{"s3 backend without bucket", func(c *Config) { c.Storage.Backend = "s3" }},
		{"events enabled without brokers", func(c *Config) {
			c.Events.Enabled = true
			c.Events.Brokers = ""
		}},
		{"cache enabled without address", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Address = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			cfg.Storage.Local.BasePath = "./uploads"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
