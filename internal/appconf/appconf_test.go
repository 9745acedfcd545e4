package appconf

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFlagToEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Environment
	}{
		{"production", "production", Production},
		{"prod shorthand", "prod", Production},
		{"production uppercase", "PRODUCTION", Production},
		{"test", "test", Test},
		{"development", "development", Development},
		{"empty defaults to development", "", Development},
		{"unknown defaults to development", "staging", Development},
		{"whitespace trimmed", "  prod  ", Production},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvFlagToEnvironment(tt.input))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.MaxStaleDataAge)
	assert.Equal(t, 60*time.Second, cfg.RevalidateInterval)
	assert.Equal(t, 30*time.Second, cfg.RevalidateLock)
	assert.Equal(t, 120*time.Minute, cfg.RemovalThreshold)
	assert.Equal(t, 30*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("GRAPHQL_ENDPOINT", "https://emma.example.com/graphql")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Production, cfg.Env)
	assert.Equal(t, "https://emma.example.com/graphql", cfg.FeedEndpoint)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsInvalidEndpoint(t *testing.T) {
	t.Setenv("GRAPHQL_ENDPOINT", "not a url")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateProxy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled proxy is always valid", Config{SOCKS5ProxyEnable: false}, false},
		{"enabled without host", Config{SOCKS5ProxyEnable: true, SOCKS5ProxyPort: 1080}, true},
		{"enabled without port", Config{SOCKS5ProxyEnable: true, SOCKS5ProxyHost: "proxy.local"}, true},
		{"enabled fully configured", Config{SOCKS5ProxyEnable: true, SOCKS5ProxyHost: "proxy.local", SOCKS5ProxyPort: 1080}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateProxy()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProxyAddr(t *testing.T) {
	cfg := Config{SOCKS5ProxyHost: "proxy.local", SOCKS5ProxyPort: 1080}
	assert.Equal(t, "proxy.local:1080", cfg.ProxyAddr())
}
