package resolve

import (
	"context"
	"sync"
)

// inFlightRegistry maps entity ids to their currently running handle,
// guaranteeing at most one in-flight computation per id. The map lock is
// held only for bookkeeping; factories run behind a per-entry placeholder,
// so unrelated ids never serialize on each other.
type inFlightRegistry[T any] struct {
	mu      sync.Mutex
	entries map[string]*inFlightEntry[T]
}

type inFlightEntry[T any] struct {
	// ready is closed once handle or err is set
	ready  chan struct{}
	handle *Handle[T]
	err    error
}

func newInFlightRegistry[T any]() *inFlightRegistry[T] {
	return &inFlightRegistry[T]{
		entries: make(map[string]*inFlightEntry[T]),
	}
}

// getOrCreate returns the handle registered for entityID, invoking factory to
// create one if none exists. Concurrent callers for the same id block until
// the factory's result is installed and receive the same handle. The boolean
// reports whether this call created the handle.
func (r *inFlightRegistry[T]) getOrCreate(
	ctx context.Context,
	entityID string,
	factory func() (*Handle[T], error),
) (*Handle[T], bool, error) {
	for {
		r.mu.Lock()
		entry, ok := r.entries[entityID]
		if !ok {
			entry = &inFlightEntry[T]{ready: make(chan struct{})}
			r.entries[entityID] = entry
			r.mu.Unlock()

			handle, err := factory()

			r.mu.Lock()
			if err != nil {
				// Remove the placeholder so other callers can retry
				if current, stillOurs := r.entries[entityID]; stillOurs && current == entry {
					delete(r.entries, entityID)
				}
				entry.err = err
			} else {
				entry.handle = handle
			}
			close(entry.ready)
			r.mu.Unlock()

			return handle, true, err
		}
		r.mu.Unlock()

		select {
		case <-entry.ready:
			if entry.err != nil {
				// The creating caller failed to spawn; try to become the creator
				continue
			}
			return entry.handle, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// get returns the handle registered for entityID, or nil if none exists or
// its factory has not completed yet.
func (r *inFlightRegistry[T]) get(entityID string) *Handle[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[entityID]
	if !ok || entry.handle == nil {
		return nil
	}
	return entry.handle
}

// delete removes the registration for entityID. Only the finishing worker
// calls this, exactly once, after its outcome has been fully classified.
func (r *inFlightRegistry[T]) delete(entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, entityID)
}

func (r *inFlightRegistry[T]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}
