package scrape

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate is a bounded-admission primitive: at most N holders execute their
// critical section concurrently, and blocked callers are admitted in
// arrival order as slots free up. It is a counting gate, not a worker pool.
type Gate struct {
	sem   *semaphore.Weighted
	limit int
}

// NewGate creates a gate admitting at most limit concurrent holders.
func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = 3
	}
	return &Gate{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Enter blocks until a slot is free or ctx is done. semaphore.Weighted
// wakes waiters in FIFO order, which gives queued callers their
// arrival-order guarantee.
func (g *Gate) Enter(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Leave releases a slot. Must pair with a successful Enter.
func (g *Gate) Leave() {
	g.sem.Release(1)
}

// Limit returns the configured admission limit.
func (g *Gate) Limit() int {
	return g.limit
}
