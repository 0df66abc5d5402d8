package config_test

import (
	"testing"
	"time"

	"github.com/Amund211/beacon/internal/config"
	"github.com/stretchr/testify/require"
)

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

var allVariablesExceptEnv = []string{"DB_HOST", "DB_PASSWORD", "DB_USERNAME", "SENTRY_DSN", "UPSTREAM_BASE_URL", "UPSTREAM_API_KEY"}

func TestGetConfig(t *testing.T) {
	compareConfig := func(dbHost, username, password, sentryDSN, upstreamBaseURL, upstreamAPIKey string, env environment, conf config.Config) {
		t.Helper()
		require.Equal(t, dbHost, conf.DBHost())
		require.Equal(t, username, conf.DBUsername())
		require.Equal(t, password, conf.DBPassword())
		require.Equal(t, sentryDSN, conf.SentryDSN())
		require.Equal(t, upstreamBaseURL, conf.UpstreamBaseURL())
		require.Equal(t, upstreamAPIKey, conf.UpstreamAPIKey())
		require.Equal(t, env == production, conf.IsProduction())
		require.Equal(t, env == staging, conf.IsStaging())
		require.Equal(t, env == development, conf.IsDevelopment())
	}

	t.Run("ensure base environment is clean", func(t *testing.T) {
		t.Run("environment is missing", func(t *testing.T) {
			// BEACON_ENVIRONMENT is required, so this should fail
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrMissingRequiredValue)
		})

		t.Run("development environment should be empty", func(t *testing.T) {
			t.Setenv("BEACON_ENVIRONMENT", "development")

			conf, err := config.ConfigFromEnv()
			require.NoError(t, err)
			compareConfig("", "", "", "", "", "", development, conf)
		})
	})

	t.Run("values are read correctly", func(t *testing.T) {
		for _, variable := range allVariablesExceptEnv {
			t.Setenv(variable, variable)
		}

		for _, env := range []environment{production, staging, development} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("BEACON_ENVIRONMENT", string(env))

				conf, err := config.ConfigFromEnv()
				require.NoError(t, err)
				compareConfig("DB_HOST", "DB_USERNAME", "DB_PASSWORD", "SENTRY_DSN", "UPSTREAM_BASE_URL", "UPSTREAM_API_KEY", env, conf)
			})
		}
	})

	t.Run("production and staging fail when missing variables", func(t *testing.T) {
		// Set all variables
		for _, variable := range allVariablesExceptEnv {
			t.Setenv(variable, "placeholder_value")
		}

		for _, env := range []environment{production, staging} {
			t.Run(string(env), func(t *testing.T) {
				t.Setenv("BEACON_ENVIRONMENT", string(env))

				for _, variable := range allVariablesExceptEnv {
					t.Run(variable, func(t *testing.T) {
						t.Setenv(variable, "")

						_, err := config.ConfigFromEnv()
						require.ErrorIs(t, err, config.ErrMissingRequiredValue)
					})
				}
			})
		}
	})

	t.Run("resolver settings have defaults", func(t *testing.T) {
		t.Setenv("BEACON_ENVIRONMENT", "development")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		require.Equal(t, 50, conf.PoolSize())
		require.Equal(t, 10*time.Second, conf.SpawnTimeout())
		require.Equal(t, 30*time.Second, conf.JoinTimeout())
		require.Equal(t, 1*time.Minute, conf.CacheTTL())
		require.Equal(t, 10*time.Second, conf.ErrorCacheTTL())
	})

	t.Run("resolver settings are parsed", func(t *testing.T) {
		t.Setenv("BEACON_ENVIRONMENT", "development")
		t.Setenv("RESOLVER_POOL_SIZE", "7")
		t.Setenv("RESOLVER_SPAWN_TIMEOUT", "250ms")
		t.Setenv("RESOLVER_JOIN_TIMEOUT", "2s")
		t.Setenv("RESOLVER_CACHE_TTL", "5m")
		t.Setenv("RESOLVER_ERROR_CACHE_TTL", "0s")

		conf, err := config.ConfigFromEnv()
		require.NoError(t, err)
		require.Equal(t, 7, conf.PoolSize())
		require.Equal(t, 250*time.Millisecond, conf.SpawnTimeout())
		require.Equal(t, 2*time.Second, conf.JoinTimeout())
		require.Equal(t, 5*time.Minute, conf.CacheTTL())
		require.Equal(t, time.Duration(0), conf.ErrorCacheTTL())
	})

	t.Run("invalid resolver settings fail", func(t *testing.T) {
		t.Setenv("BEACON_ENVIRONMENT", "development")

		t.Run("pool size", func(t *testing.T) {
			t.Setenv("RESOLVER_POOL_SIZE", "lots")
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrInvalidValue)
		})

		t.Run("non-positive pool size", func(t *testing.T) {
			t.Setenv("RESOLVER_POOL_SIZE", "0")
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrInvalidValue)
		})

		t.Run("spawn timeout", func(t *testing.T) {
			t.Setenv("RESOLVER_SPAWN_TIMEOUT", "soon")
			_, err := config.ConfigFromEnv()
			require.ErrorIs(t, err, config.ErrInvalidValue)
		})
	})
}
