package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Budget enforces a rolling-window cap on completed operations: at most limit
// operations may finish within any window. Run blocks until the operation is
// allowed to proceed, so the cap holds across concurrent callers.
type Budget struct {
	limit  int
	window time.Duration
	now    func() time.Time
	after  func(time.Duration) <-chan time.Time

	slots chan struct{}

	mu       sync.Mutex
	finished []time.Time
}

func NewBudget(limit int, window time.Duration) *Budget {
	return newBudgetWithClock(limit, window, time.Now, time.After)
}

func newBudgetWithClock(
	limit int,
	window time.Duration,
	now func() time.Time,
	after func(time.Duration) <-chan time.Time,
) *Budget {
	slots := make(chan struct{}, limit)
	for i := 0; i < limit; i++ {
		slots <- struct{}{}
	}

	// Seed the history with timestamps outside the window so the first limit
	// operations run without waiting
	seed := now().Add(-window)
	finished := make([]time.Time, limit)
	for i := range finished {
		finished[i] = seed
	}

	return &Budget{
		limit:    limit,
		window:   window,
		now:      now,
		after:    after,
		slots:    slots,
		finished: finished,
	}
}

// Run executes operation once the budget allows it, waiting out the rolling
// window if needed. It reports whether the operation ran: a context that is
// done, or whose deadline cannot fit the wait plus minOperationTime, refuses
// without running.
func (b *Budget) Run(ctx context.Context, minOperationTime time.Duration, operation func()) bool {
	if ctx.Err() != nil {
		return false
	}

	select {
	case <-b.slots:
		defer func() {
			b.slots <- struct{}{}
		}()
	case <-ctx.Done():
		return false
	}

	oldest, ok := b.takeOldest(ctx, minOperationTime)
	if !ok {
		return false
	}
	// Put the taken timestamp back if the operation never runs
	finishedAt := oldest
	defer func() {
		b.putFinished(finishedAt)
	}()

	if wait := b.window - b.now().Sub(oldest); wait > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-b.after(wait):
		}
	}

	operation()
	finishedAt = b.now()
	return true
}

// takeOldest removes and returns the oldest finish timestamp, refusing when
// the caller's deadline cannot accommodate the implied wait.
func (b *Budget) takeOldest(ctx context.Context, minOperationTime time.Duration) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldest := b.finished[0]

	if deadline, ok := ctx.Deadline(); ok {
		wait := max(b.window-b.now().Sub(oldest), 0)
		if wait+minOperationTime > deadline.Sub(b.now()) {
			return time.Time{}, false
		}
	}

	b.finished = b.finished[1:]
	return oldest, true
}

func (b *Budget) putFinished(t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i, _ := slices.BinarySearchFunc(b.finished, t, time.Time.Compare)
	b.finished = slices.Insert(b.finished, i, t)
}
