package resolve

import (
	"context"
	"time"
)

type callOptions struct {
	spawn        bool
	spawnTimeout time.Duration
	spawnRaise   bool
	join         bool
	joinTimeout  time.Duration
	joinRaise    bool
}

func defaultCallOptions() callOptions {
	return callOptions{
		spawn:        true,
		spawnTimeout: 10 * time.Second,
		spawnRaise:   true,
		join:         false,
		joinTimeout:  30 * time.Second,
		joinRaise:    true,
	}
}

// Option overrides a single resolve option for one call. Unset options keep
// the resolver's defaults.
type Option func(*callOptions)

// WithSpawn controls whether missing entity ids get a worker dispatched.
// When false, only the getter and already in-flight work contribute.
func WithSpawn(spawn bool) Option {
	return func(o *callOptions) {
		o.spawn = spawn
	}
}

// WithSpawnTimeout bounds the time allowed to dispatch missing work,
// including waiting for pool capacity. Non-positive disables the bound.
func WithSpawnTimeout(timeout time.Duration) Option {
	return func(o *callOptions) {
		o.spawnTimeout = timeout
	}
}

// WithSpawnRaise controls whether an exceeded spawn timeout fails the call
// (true) or degrades to returning only what the getter can see (false).
func WithSpawnRaise(raise bool) Option {
	return func(o *callOptions) {
		o.spawnRaise = raise
	}
}

// WithJoin controls whether the call waits for dispatched work to complete
// before returning.
func WithJoin(join bool) Option {
	return func(o *callOptions) {
		o.join = join
	}
}

// WithJoinTimeout bounds the wait for dispatched work. Non-positive disables
// the bound.
func WithJoinTimeout(timeout time.Duration) Option {
	return func(o *callOptions) {
		o.joinTimeout = timeout
	}
}

// WithJoinRaise controls whether an exceeded join timeout fails the call
// (true) or yields a partial result without the unfinished ids (false).
func WithJoinRaise(raise bool) Option {
	return func(o *callOptions) {
		o.joinRaise = raise
	}
}

// ResolverOption configures a Resolver at construction time.
type ResolverOption[T any] func(*Resolver[T])

// WithDefaults replaces the resolver's default call options.
func WithDefaults[T any](opts ...Option) ResolverOption[T] {
	return func(r *Resolver[T]) {
		for _, opt := range opts {
			opt(&r.defaults)
		}
	}
}

// WithContextWrapper injects a wrapper applied to the context of every
// spawned worker, after it has been detached from the batch call. Use this to
// establish ambient state (loggers, reporting meta) for worker runs.
func WithContextWrapper[T any](wrap func(context.Context) context.Context) ResolverOption[T] {
	return func(r *Resolver[T]) {
		r.wrapContext = wrap
	}
}

// WithOnValue registers a hook invoked with every value outcome before it is
// recorded, e.g. to populate a cache.
func WithOnValue[T any](onValue func(ctx context.Context, entityID string, value T)) ResolverOption[T] {
	return func(r *Resolver[T]) {
		r.onValue = onValue
	}
}

// WithOnError registers a hook invoked with every error outcome (soft and
// hard) before it is recorded, e.g. to negatively cache failures.
func WithOnError[T any](onError func(ctx context.Context, entityID string, err error)) ResolverOption[T] {
	return func(r *Resolver[T]) {
		r.onError = onError
	}
}
