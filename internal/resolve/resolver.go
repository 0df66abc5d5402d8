package resolve

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Amund211/beacon/internal/logging"
	"github.com/Amund211/beacon/internal/reporting"
	"go.opentelemetry.io/otel/metric"
)

// Worker computes the value for a single entity id. A non-nil error is a
// hard failure (logged with full diagnostics and reported); to fail softly,
// return SoftError with a nil error. Returning Absent records nothing.
type Worker[T any] func(ctx context.Context, entityID string) (Outcome[T], error)

// Getter returns the subset of entity ids that are resolvable without
// computation, e.g. from a cache or a persistent store. Cached failures may
// be returned as error outcomes.
type Getter[T any] func(ctx context.Context, entityIDs []string) (map[string]Outcome[T], error)

// BatchResult partitions the outcomes of one Resolve call. Entity ids that
// resolved to Absent, or did not finish in time, appear in neither map.
type BatchResult[T any] struct {
	Data   map[string]T
	Errors map[string]error
}

// Resolver orchestrates batch resolution: entity ids the getter cannot see
// get at most one worker dispatched across all concurrent callers, bounded
// by the pool's capacity and the per-call dispatch and join budgets.
type Resolver[T any] struct {
	pool     *Pool[T]
	inFlight *inFlightRegistry[T]
	getter   Getter[T]
	worker   Worker[T]

	wrapContext func(context.Context) context.Context
	onValue     func(ctx context.Context, entityID string, value T)
	onError     func(ctx context.Context, entityID string, err error)

	defaults callOptions
}

func New[T any](pool *Pool[T], getter Getter[T], worker Worker[T], opts ...ResolverOption[T]) *Resolver[T] {
	if pool == nil || getter == nil || worker == nil {
		panic("logic error: pool, getter and worker are required")
	}

	resolver := &Resolver[T]{
		pool:        pool,
		inFlight:    newInFlightRegistry[T](),
		getter:      getter,
		worker:      worker,
		wrapContext: func(ctx context.Context) context.Context { return ctx },
		defaults:    defaultCallOptions(),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Status is a point-in-time snapshot of the resolver's occupancy.
type Status struct {
	PoolName    string `json:"poolName"`
	PoolSize    int    `json:"poolSize"`
	PoolFree    int    `json:"poolFree"`
	PoolRunning int    `json:"poolRunning"`
	InFlight    int    `json:"inFlight"`
}

func (r *Resolver[T]) Status() Status {
	return Status{
		PoolName:    r.pool.Name(),
		PoolSize:    r.pool.Size(),
		PoolFree:    r.pool.Free(),
		PoolRunning: r.pool.Running(),
		InFlight:    r.inFlight.size(),
	}
}

// Resolve returns an outcome for each of the given entity ids: values and
// failures the getter or the dispatched workers produced within the call's
// budgets, partitioned into data and errors.
func (r *Resolver[T]) Resolve(ctx context.Context, entityIDs []string, opts ...Option) (BatchResult[T], error) {
	logger := logging.FromContext(ctx)

	options := r.defaults
	for _, opt := range opts {
		opt(&options)
	}

	ids := dedupeIDs(entityIDs)

	resolved, err := r.getter(ctx, ids)
	if err != nil {
		return BatchResult[T]{}, fmt.Errorf("failed to get entities: %w", err)
	}
	metrics.getterHits.Add(ctx, int64(len(resolved)))

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}

	collector := newResultCollector[T]()

	handles, dispatched, dispatchErr := r.dispatch(ctx, missing, options, collector)
	if dispatchErr != nil {
		if ctx.Err() != nil {
			return BatchResult[T]{}, fmt.Errorf("resolve aborted: %w", ctx.Err())
		}

		logger.WarnContext(ctx, "Dispatch timeout during resolve",
			"spawnTimeout", options.spawnTimeout.String(),
			"entityIds", missing,
		)
		if options.spawnRaise {
			return BatchResult[T]{}, fmt.Errorf("%w: could not dispatch all of %v within %s", ErrDispatchTimeout, missing, options.spawnTimeout)
		}

		// Degrade: return what the getter can see now and spawn nothing.
		// Workers dispatched before the cut keep running and stay registered
		// for later calls to join.
		resolved, err = r.getter(ctx, ids)
		if err != nil {
			return BatchResult[T]{}, fmt.Errorf("failed to get entities: %w", err)
		}
		// Outcomes collected before the cut belong to the aborted dispatch
		handles = r.collectInFlight(missing)
		collector = newResultCollector[T]()
	}

	logger.InfoContext(ctx, "Processing batch",
		"resolved", sortedKeys(resolved),
		"dispatched", dispatched,
		"poolFree", r.pool.Free(),
		"poolRunning", r.pool.Running(),
		"inFlight", r.inFlight.size(),
	)

	if options.join && len(handles) > 0 {
		pending := JoinAll(ctx, handles, options.joinTimeout)
		if ctx.Err() != nil {
			return BatchResult[T]{}, fmt.Errorf("resolve aborted: %w", ctx.Err())
		}
		if len(pending) > 0 {
			pendingIDs := make([]string, 0, len(pending))
			for _, handle := range pending {
				pendingIDs = append(pendingIDs, handle.EntityID())
			}
			logger.WarnContext(ctx, "Join timeout during resolve",
				"joinTimeout", options.joinTimeout.String(),
				"pendingIds", pendingIDs,
			)
			if options.joinRaise {
				return BatchResult[T]{}, fmt.Errorf("%w: %v still unfinished after %s", ErrJoinTimeout, pendingIDs, options.joinTimeout)
			}
		}
	}

	result := BatchResult[T]{
		Data:   make(map[string]T),
		Errors: make(map[string]error),
	}
	partitionInto(&result, resolved)
	partitionInto(&result, collector.snapshot())
	return result, nil
}

// dispatch attempts to get or spawn a worker for every missing id, bounded by
// the spawn timeout. Outcomes of the returned handles feed the collector.
func (r *Resolver[T]) dispatch(
	ctx context.Context,
	missing []string,
	options callOptions,
	collector *resultCollector[T],
) ([]*Handle[T], []string, error) {
	if !options.spawn {
		handles := r.collectInFlight(missing)
		for _, handle := range handles {
			handle.OnDone(collector.callback(handle.EntityID()))
		}
		return handles, nil, nil
	}

	dispatchCtx := ctx
	cancel := context.CancelFunc(func() {})
	if options.spawnTimeout > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, options.spawnTimeout)
	}
	// Cancel only after the dispatch loop has fully completed or the timeout
	// fired; the loop below never outlives this function.
	defer cancel()

	var handles []*Handle[T]
	var dispatched []string
	for _, id := range missing {
		// Reusing an existing handle needs no capacity; wait for a free slot
		// only when this id may actually spawn. Otherwise a saturated pool,
		// possibly saturated by these very ids, would burn the dispatch window
		// for callers that only want to join.
		if handle := r.inFlight.get(id); handle != nil {
			handle.OnDone(collector.callback(id))
			handles = append(handles, handle)
			continue
		}

		if err := r.pool.WaitAvailable(dispatchCtx); err != nil {
			return handles, dispatched, err
		}

		handle, created, err := r.inFlight.getOrCreate(dispatchCtx, id, func() (*Handle[T], error) {
			return r.spawnWorker(dispatchCtx, id)
		})
		if err != nil {
			return handles, dispatched, err
		}

		handle.OnDone(collector.callback(id))
		handles = append(handles, handle)
		if created {
			dispatched = append(dispatched, id)
			metrics.dispatches.Add(ctx, 1)
		}
	}
	return handles, dispatched, nil
}

func (r *Resolver[T]) collectInFlight(ids []string) []*Handle[T] {
	var handles []*Handle[T]
	for _, id := range ids {
		if handle := r.inFlight.get(id); handle != nil {
			handles = append(handles, handle)
		}
	}
	return handles
}

func (r *Resolver[T]) spawnWorker(ctx context.Context, entityID string) (*Handle[T], error) {
	// The worker must outlive the batch call: only the spawn itself is
	// bounded by the dispatch window. Detach before wrapping so the injected
	// ambient state survives as well.
	workerCtx := r.wrapContext(context.WithoutCancel(ctx))

	return r.pool.Spawn(ctx, entityID, func() Outcome[T] {
		return r.runWorker(workerCtx, entityID)
	})
}

// runWorker executes the user worker for one entity id and classifies its
// outcome, applying the value/error hooks before deregistering the id.
func (r *Resolver[T]) runWorker(ctx context.Context, entityID string) Outcome[T] {
	// Deregistration must happen exactly once, after classification and side
	// effects. Deferring it also covers panicking workers, so a crash never
	// leaves a permanently stuck in-flight entry.
	defer r.inFlight.delete(entityID)

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "Starting worker", "entityId", entityID)
	start := time.Now()

	outcome, err := r.worker(ctx, entityID)
	if err != nil {
		logger.ErrorContext(ctx, "Worker failed", "entityId", entityID, "error", err.Error())
		reporting.Report(ctx, err, map[string]string{"entityId": entityID})
		outcome = hardError[T](err)
	}

	metrics.workerDuration.Record(ctx, time.Since(start).Seconds())
	metrics.outcomes.Add(ctx, 1, metric.WithAttributes(outcomeKindAttribute(outcome)))

	if workerErr, ok := outcome.Error(); ok {
		if !outcome.hard {
			logger.WarnContext(ctx, "Worker failed", "entityId", entityID, "error", workerErr.Error())
		}
		if r.onError != nil {
			r.onError(ctx, entityID, workerErr)
		}
		return outcome
	}

	if value, ok := outcome.Data(); ok {
		if r.onValue != nil {
			r.onValue(ctx, entityID, value)
		}
		return outcome
	}

	logger.DebugContext(ctx, "Worker produced nothing to record", "entityId", entityID)
	return outcome
}

// resultCollector gathers outcomes from completion callbacks. Callbacks may
// fire after the batch call has returned; the mutex keeps late writers safe.
type resultCollector[T any] struct {
	mu       sync.Mutex
	outcomes map[string]Outcome[T]
}

func newResultCollector[T any]() *resultCollector[T] {
	return &resultCollector[T]{
		outcomes: make(map[string]Outcome[T]),
	}
}

func (c *resultCollector[T]) callback(entityID string) func(Outcome[T]) {
	return func(outcome Outcome[T]) {
		if outcome.IsAbsent() {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.outcomes[entityID] = outcome
	}
}

func (c *resultCollector[T]) snapshot() map[string]Outcome[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make(map[string]Outcome[T], len(c.outcomes))
	for id, outcome := range c.outcomes {
		snapshot[id] = outcome
	}
	return snapshot
}

func partitionInto[T any](result *BatchResult[T], outcomes map[string]Outcome[T]) {
	for id, outcome := range outcomes {
		if value, ok := outcome.Data(); ok {
			result.Data[id] = value
		} else if err, ok := outcome.Error(); ok {
			result.Errors[id] = err
		}
	}
}

func dedupeIDs(entityIDs []string) []string {
	seen := make(map[string]struct{}, len(entityIDs))
	ids := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func sortedKeys[T any](outcomes map[string]Outcome[T]) []string {
	keys := make([]string, 0, len(outcomes))
	for key := range outcomes {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
