package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Amund211/beacon/internal/adapters/cache"
	"github.com/Amund211/beacon/internal/adapters/database"
	"github.com/Amund211/beacon/internal/adapters/profileprovider"
	"github.com/Amund211/beacon/internal/adapters/profilerepository"
	"github.com/Amund211/beacon/internal/app"
	"github.com/Amund211/beacon/internal/config"
	"github.com/Amund211/beacon/internal/domain"
	"github.com/Amund211/beacon/internal/ports"
	"github.com/Amund211/beacon/internal/reporting"
	"github.com/Amund211/beacon/internal/resolve"
	"github.com/Amund211/beacon/internal/telemetry"
	"github.com/google/uuid"
)

func main() {
	ctx := context.Background()

	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	if !config.IsDevelopment() {
		shutdownTelemetry, err := telemetry.Setup(ctx, "beacon", instanceID)
		if err != nil {
			fail("Failed to initialize telemetry", "error", err.Error())
		}
		defer shutdownTelemetry(ctx)
		logger.Info("Initialized telemetry")
	}

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	upstreamAPI, err := profileprovider.NewUpstreamAPIOrMock(config, httpClient)
	if err != nil {
		fail("Failed to initialize upstream API", "error", err.Error())
	}
	logger.Info("Initialized upstream API")

	provider, err := profileprovider.NewUpstreamProfileProvider(upstreamAPI)
	if err != nil {
		fail("Failed to initialize profile provider", "error", err.Error())
	}

	logger.Info("Initializing database connection")
	db, err := database.NewPostgresDatabaseFromConfig(config)
	if err != nil {
		fail("Failed to initialize database connection", "error", err.Error())
	}
	logger.Info("Initialized database connection")

	repositorySchemaName := database.GetSchemaName(!config.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, repositorySchemaName)
	if err != nil {
		fail("Failed to migrate database", "error", err.Error())
	}

	profileRepo := profilerepository.NewPostgresProfileRepository(db, repositorySchemaName)
	logger.Info("Initialized ProfileRepository")

	outcomeCache := cache.NewOutcomeCache(
		cache.NewTTLCache[resolve.Outcome[*domain.Profile]](config.CacheTTL()),
		config.CacheTTL(),
		config.ErrorCacheTTL(),
	)

	profileResolver := app.BuildProfileResolver(
		outcomeCache,
		provider,
		profileRepo,
		config.PoolSize(),
		config.SpawnTimeout(),
		config.JoinTimeout(),
		config.CacheTTL(),
		logger,
		time.Now,
	)
	resolveProfiles := app.BuildResolveProfiles(profileResolver)

	http.HandleFunc(
		"POST /v1/profiles/resolve",
		ports.MakeResolveProfilesHandler(
			resolveProfiles,
			logger.With("port", "resolveprofiles"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"GET /v1/status",
		ports.MakeStatusHandler(
			[]func() resolve.Status{profileResolver.Status},
			logger.With("port", "status"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", config.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}
