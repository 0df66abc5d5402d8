package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type Config struct {
	dBHost          string
	dBPassword      string
	dBUsername      string
	sentryDSN       string
	upstreamBaseURL string
	upstreamAPIKey  string
	port            string
	poolSize        int
	spawnTimeout    time.Duration
	joinTimeout     time.Duration
	cacheTTL        time.Duration
	errorCacheTTL   time.Duration
	env             environment
}

func (c *Config) DBHost() string {
	return c.dBHost
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) UpstreamBaseURL() string {
	return c.upstreamBaseURL
}

func (c *Config) UpstreamAPIKey() string {
	return c.upstreamAPIKey
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) PoolSize() int {
	return c.poolSize
}

func (c *Config) SpawnTimeout() time.Duration {
	return c.spawnTimeout
}

func (c *Config) JoinTimeout() time.Duration {
	return c.joinTimeout
}

func (c *Config) CacheTTL() time.Duration {
	return c.cacheTTL
}

func (c *Config) ErrorCacheTTL() time.Duration {
	return c.errorCacheTTL
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, poolSize: %d, spawnTimeout: %s, joinTimeout: %s, cacheTTL: %s, errorCacheTTL: %s, ...}",
		string(c.env), c.poolSize, c.spawnTimeout, c.joinTimeout, c.cacheTTL, c.errorCacheTTL,
	)
}

func intFromEnv(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	return value, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	return value, nil
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("BEACON_ENVIRONMENT")
	if !ok {
		return missingKey("BEACON_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: BEACON_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}

	dbHost := os.Getenv("DB_HOST")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")
	upstreamBaseURL := os.Getenv("UPSTREAM_BASE_URL")
	upstreamAPIKey := os.Getenv("UPSTREAM_API_KEY")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8123"
	}

	poolSize, err := intFromEnv("RESOLVER_POOL_SIZE", 50)
	if err != nil {
		return Config{}, err
	}
	if poolSize <= 0 {
		return Config{}, fmt.Errorf("%w: RESOLVER_POOL_SIZE (%d)", ErrInvalidValue, poolSize)
	}

	spawnTimeout, err := durationFromEnv("RESOLVER_SPAWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	joinTimeout, err := durationFromEnv("RESOLVER_JOIN_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := durationFromEnv("RESOLVER_CACHE_TTL", 1*time.Minute)
	if err != nil {
		return Config{}, err
	}

	errorCacheTTL, err := durationFromEnv("RESOLVER_ERROR_CACHE_TTL", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	if env == production || env == staging {
		if dbHost == "" {
			return missingKey("DB_HOST")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if upstreamBaseURL == "" {
			return missingKey("UPSTREAM_BASE_URL")
		}
		if upstreamAPIKey == "" {
			return missingKey("UPSTREAM_API_KEY")
		}
	}

	return Config{
		dBHost:          dbHost,
		dBPassword:      dbPassword,
		dBUsername:      dbUsername,
		sentryDSN:       sentryDSN,
		upstreamBaseURL: upstreamBaseURL,
		upstreamAPIKey:  upstreamAPIKey,
		port:            port,
		poolSize:        poolSize,
		spawnTimeout:    spawnTimeout,
		joinTimeout:     joinTimeout,
		cacheTTL:        cacheTTL,
		errorCacheTTL:   errorCacheTTL,
		env:             env,
	}, nil
}
