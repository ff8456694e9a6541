package scrape

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateNeverExceedsLimit(t *testing.T) {
	const limit = 3
	gate := NewGate(limit)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, gate.Enter(context.Background()))
			defer gate.Leave()

			now := running.Add(1)
			for {
				p := peak.Load()
				if now <= p || peak.CompareAndSwap(p, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Positive(t, peak.Load())
}

func TestGateAdmitsWaitersInArrivalOrder(t *testing.T) {
	gate := NewGate(1)
	ctx := context.Background()

	// Hold the only slot so every subsequent Enter queues.
	require.NoError(t, gate.Enter(ctx))

	const waiters = 5
	var mu sync.Mutex
	var admitted []int
	ready := make(chan struct{}, waiters)
	var wg sync.WaitGroup

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ready <- struct{}{}
			require.NoError(t, gate.Enter(ctx))
			mu.Lock()
			admitted = append(admitted, n)
			mu.Unlock()
			gate.Leave()
		}(i)
		<-ready
		// Give the goroutine time to block inside Enter before the next
		// waiter queues, so arrival order is deterministic.
		time.Sleep(10 * time.Millisecond)
	}

	gate.Leave()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, admitted)
}

func TestGateEnterRespectsContext(t *testing.T) {
	gate := NewGate(1)
	require.NoError(t, gate.Enter(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, gate.Enter(ctx))
}

func TestGateDefaultsLimit(t *testing.T) {
	assert.Equal(t, 3, NewGate(0).Limit())
	assert.Equal(t, 3, NewGate(-1).Limit())
	assert.Equal(t, 8, NewGate(8).Limit())
}
