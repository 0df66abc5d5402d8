package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/beacon/internal/adapters/cache"
	"github.com/Amund211/beacon/internal/adapters/profileprovider"
	"github.com/Amund211/beacon/internal/adapters/profilerepository"
	"github.com/Amund211/beacon/internal/domain"
	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/resolve"
)

// ResolveProfiles resolves a batch of player UUIDs into profiles.
type ResolveProfiles func(ctx context.Context, uuids []string, opts ...resolve.Option) (resolve.BatchResult[*domain.Profile], error)

func resolveAndPersistProfile(ctx context.Context, provider profileprovider.ProfileProvider, repo profilerepository.ProfileRepository, uuid string) (resolve.Outcome[*domain.Profile], error) {
	logger := logging.FromContext(ctx)

	profile, err := provider.GetProfile(ctx, uuid)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) || errors.Is(err, domain.ErrTemporarilyUnavailable) {
			// Expected failures belong to the caller, not the error budget
			return resolve.SoftError[*domain.Profile](err), nil
		}
		// NOTE: ProfileProvider implementations handle their own error reporting
		return resolve.Absent[*domain.Profile](), fmt.Errorf("could not get profile: %w", err)
	}

	// Ignore cancellations from the batch context and try to store the data
	// anyway. Take a maximum of 1 second to not block the worker for too long.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 1*time.Second)
	defer cancel()
	err = repo.StoreProfile(storeCtx, profile)
	if err != nil {
		// NOTE: ProfileRepository implementations handle their own error reporting
		logger.Error("failed to store profile", "error", err.Error())

		// NOTE: We still return the profile to fulfill the batch even though storing failed
	}

	return resolve.Value(profile), nil
}

// layeredGetter serves cached outcomes first and falls back to recently
// stored profiles for the remaining ids, promoting repository hits into the
// cache.
func layeredGetter(
	outcomes *cache.OutcomeCache[*domain.Profile],
	repo profilerepository.ProfileRepository,
	freshness time.Duration,
	nowFunc func() time.Time,
) resolve.Getter[*domain.Profile] {
	return func(ctx context.Context, uuids []string) (map[string]resolve.Outcome[*domain.Profile], error) {
		resolved, err := outcomes.Get(ctx, uuids)
		if err != nil {
			return nil, fmt.Errorf("failed to get cached outcomes: %w", err)
		}

		missing := make([]string, 0, len(uuids))
		for _, uuid := range uuids {
			if _, ok := resolved[uuid]; !ok {
				missing = append(missing, uuid)
			}
		}
		if len(missing) == 0 {
			return resolved, nil
		}

		stored, err := repo.GetProfiles(ctx, missing, nowFunc().Add(-freshness))
		if err != nil {
			// NOTE: ProfileRepository implementations handle their own error reporting
			logging.FromContext(ctx).Error("failed to get stored profiles", "error", err.Error())

			// A broken repository shouldn't take down resolution; the ids are
			// treated as misses and resolved through the provider instead.
			return resolved, nil
		}

		for uuid, profile := range stored {
			resolved[uuid] = resolve.Value(profile)
			outcomes.StoreValue(ctx, uuid, profile)
		}
		return resolved, nil
	}
}

// BuildProfileResolver wires the outcome cache, the upstream provider and the
// repository into a resolver for profile batches.
func BuildProfileResolver(
	outcomes *cache.OutcomeCache[*domain.Profile],
	provider profileprovider.ProfileProvider,
	repo profilerepository.ProfileRepository,
	poolSize int,
	spawnTimeout time.Duration,
	joinTimeout time.Duration,
	cacheTTL time.Duration,
	logger *slog.Logger,
	nowFunc func() time.Time,
) *resolve.Resolver[*domain.Profile] {
	if nowFunc == nil {
		nowFunc = time.Now
	}

	pool := resolve.NewPool[*domain.Profile]("profiles", poolSize)

	worker := func(ctx context.Context, uuid string) (resolve.Outcome[*domain.Profile], error) {
		return resolveAndPersistProfile(ctx, provider, repo, uuid)
	}

	return resolve.New(
		pool,
		layeredGetter(outcomes, repo, cacheTTL, nowFunc),
		worker,
		resolve.WithDefaults[*domain.Profile](
			resolve.WithSpawnTimeout(spawnTimeout),
			resolve.WithJoinTimeout(joinTimeout),
		),
		resolve.WithContextWrapper[*domain.Profile](func(ctx context.Context) context.Context {
			return logging.AddToContext(ctx, logger.With("component", "profileResolver"))
		}),
		resolve.WithOnValue[*domain.Profile](outcomes.StoreValue),
		resolve.WithOnError[*domain.Profile](outcomes.StoreError),
	)
}

// BuildResolveProfiles exposes the resolver as a plain closure for the ports.
func BuildResolveProfiles(resolver *resolve.Resolver[*domain.Profile]) ResolveProfiles {
	return func(ctx context.Context, uuids []string, opts ...resolve.Option) (resolve.BatchResult[*domain.Profile], error) {
		result, err := resolver.Resolve(ctx, uuids, opts...)
		if err != nil {
			return resolve.BatchResult[*domain.Profile]{}, fmt.Errorf("failed to resolve profiles: %w", err)
		}
		return result, nil
	}
}
