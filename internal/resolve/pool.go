package resolve

import (
	"context"
	"sync"
	"time"
)

// Handle tracks one spawned unit of work. It is owned by the in-flight
// registry until completion; observers may attach completion callbacks but
// must not assume exclusive access.
type Handle[T any] struct {
	entityID string
	done     chan struct{}

	mu        sync.Mutex
	completed bool
	outcome   Outcome[T]
	callbacks []func(Outcome[T])
}

func newHandle[T any](entityID string) *Handle[T] {
	return &Handle[T]{
		entityID: entityID,
		done:     make(chan struct{}),
	}
}

func (h *Handle[T]) EntityID() string {
	return h.entityID
}

// Done is closed when the work has completed.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

func (h *Handle[T]) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Outcome returns the final outcome and whether the work has completed.
func (h *Handle[T]) Outcome() (Outcome[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome, h.completed
}

// OnDone registers a callback invoked exactly once with the final outcome.
// Callbacks registered after completion are invoked immediately.
func (h *Handle[T]) OnDone(callback func(Outcome[T])) {
	h.mu.Lock()
	if h.completed {
		outcome := h.outcome
		h.mu.Unlock()
		callback(outcome)
		return
	}
	h.callbacks = append(h.callbacks, callback)
	h.mu.Unlock()
}

func (h *Handle[T]) complete(outcome Outcome[T]) {
	h.mu.Lock()
	if h.completed {
		panic("logic error: handle completed twice")
	}
	h.outcome = outcome
	h.completed = true
	callbacks := h.callbacks
	h.callbacks = nil
	close(h.done)
	h.mu.Unlock()

	for _, callback := range callbacks {
		callback(outcome)
	}
}

// Pool executes units of work with bounded concurrency. Slot accounting uses
// a buffered channel of tokens, so waiting for capacity suspends only the
// calling goroutine.
type Pool[T any] struct {
	name  string
	slots chan struct{}
}

func NewPool[T any](name string, size int) *Pool[T] {
	if size <= 0 {
		panic("logic error: pool size must be positive")
	}

	slots := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		slots <- struct{}{}
	}

	pool := &Pool[T]{
		name:  name,
		slots: slots,
	}
	registerPoolGauges(name, pool.Free, pool.Running)
	return pool
}

func (p *Pool[T]) Name() string {
	return p.name
}

func (p *Pool[T]) Size() int {
	return cap(p.slots)
}

func (p *Pool[T]) Free() int {
	return len(p.slots)
}

func (p *Pool[T]) Running() int {
	return cap(p.slots) - len(p.slots)
}

// WaitAvailable blocks until at least one slot is free or ctx is done. This
// is the backpressure mechanism for dispatch: callers bound the wait by
// passing a context carrying the dispatch window.
func (p *Pool[T]) WaitAvailable(ctx context.Context) error {
	select {
	case slot := <-p.slots:
		p.slots <- slot
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn acquires a slot and runs fn on its own goroutine, returning a handle
// for the work. Only the slot acquisition is bounded by ctx; the spawned work
// itself runs to completion regardless of ctx.
func (p *Pool[T]) Spawn(ctx context.Context, entityID string, fn func() Outcome[T]) (*Handle[T], error) {
	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	handle := newHandle[T](entityID)
	go func() {
		defer func() {
			p.slots <- struct{}{}
		}()
		handle.complete(fn())
	}()

	return handle, nil
}

// JoinAll waits for the given handles to complete. A non-positive timeout
// waits until ctx is done. The returned slice holds the handles that were
// still pending when the wait ended; it is nil when everything finished.
func JoinAll[T any](ctx context.Context, handles []*Handle[T], timeout time.Duration) []*Handle[T] {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for i, handle := range handles {
		select {
		case <-handle.Done():
		case <-ctx.Done():
			var pending []*Handle[T]
			for _, rest := range handles[i:] {
				if !rest.IsDone() {
					pending = append(pending, rest)
				}
			}
			return pending
		}
	}
	return nil
}
