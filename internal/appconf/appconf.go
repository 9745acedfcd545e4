// Package appconf holds process configuration loaded from the environment.
// A .env file in the working directory is honored for local development.
package appconf

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment identifies the deployment environment the server runs in.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// EnvFlagToEnvironment maps the ENV flag value to an Environment.
func EnvFlagToEnvironment(value string) Environment {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func (e Environment) String() string {
	switch e {
	case Production:
		return "production"
	case Test:
		return "test"
	default:
		return "development"
	}
}

// Config carries every tunable the server needs. Validation tags are
// enforced by Load; proxy coherence (enabled implies host and port) is
// checked separately because validator cannot express it across fields.
type Config struct {
	Env      Environment
	LogLevel slog.Level
	HTTPAddr string
	Debug    bool

	FeedEndpoint string `validate:"omitempty,url"`
	FeedTimeout  time.Duration

	SOCKS5ProxyEnable   bool
	SOCKS5ProxyHost     string
	SOCKS5ProxyPort     int `validate:"gte=0,lte=65535"`
	SOCKS5ProxyUsername string
	SOCKS5ProxyPassword string

	RedisAddr     string `validate:"required"`
	RedisPassword string
	RedisDB       int

	CountiesPath string

	CacheTTL           time.Duration
	MaxStaleDataAge    time.Duration
	RevalidateInterval time.Duration
	RevalidateLock     time.Duration
	RemovalThreshold   time.Duration

	// RateLimitPerSecond caps requests per client IP. Zero disables
	// limiting.
	RateLimitPerSecond int `validate:"gte=0"`

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. Missing optional values
// fall back to defaults matching production behavior.
func Load() (Config, error) {
	// Best effort; absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Env:      EnvFlagToEnvironment(getEnv("ENV", "development")),
		LogLevel: getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getBoolEnv("DEBUG", false),

		FeedEndpoint: getEnv("GRAPHQL_ENDPOINT", ""),
		FeedTimeout:  getDurationEnv("FEED_TIMEOUT", 30*time.Second),

		SOCKS5ProxyEnable:   getBoolEnv("SOCKS5_PROXY_ENABLE", false),
		SOCKS5ProxyHost:     getEnv("SOCKS5_PROXY_HOST", ""),
		SOCKS5ProxyPort:     getIntEnv("SOCKS5_PROXY_PORT", 0),
		SOCKS5ProxyUsername: getEnv("SOCKS5_PROXY_USERNAME", ""),
		SOCKS5ProxyPassword: getEnv("SOCKS5_PROXY_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		CountiesPath: getEnv("COUNTIES_PATH", "data/counties.geojson"),

		CacheTTL:           getDurationEnv("CACHE_TTL", 15*time.Minute),
		MaxStaleDataAge:    getDurationEnv("MAX_STALE_DATA_AGE", 15*time.Minute),
		RevalidateInterval: getDurationEnv("REVALIDATE_INTERVAL", 60*time.Second),
		RevalidateLock:     getDurationEnv("REVALIDATE_LOCK", 30*time.Second),
		RemovalThreshold:   getDurationEnv("REMOVAL_THRESHOLD", 120*time.Minute),

		RateLimitPerSecond: getIntEnv("RATE_LIMIT_PER_SECOND", 0),

		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ValidateProxy reports whether the SOCKS5 proxy settings are usable.
// Called at the point of use so a misconfigured proxy only fails fetches,
// not process startup.
func (c Config) ValidateProxy() error {
	if !c.SOCKS5ProxyEnable {
		return nil
	}
	if c.SOCKS5ProxyHost == "" || c.SOCKS5ProxyPort == 0 {
		return fmt.Errorf("proxy is enabled but host or port is not set")
	}
	return nil
}

// ProxyAddr returns the host:port the SOCKS5 dialer should connect to.
func (c Config) ProxyAddr() string {
	return fmt.Sprintf("%s:%d", c.SOCKS5ProxyHost, c.SOCKS5ProxyPort)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}
