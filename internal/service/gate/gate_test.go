package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryGate_Boundary(t *testing.T) {
	const limit = 3
	window := 10 * time.Second
	clk := newFakeClock()
	g := NewMemoryGate(window, limit, WithClock(clk.Now))

	for i := 0; i < limit+1; i++ {
		require.True(t, g.Allow("10.0.0.1"), "request %d", i+1)
	}
	require.False(t, g.Allow("10.0.0.1"), "request L+2")
	require.False(t, g.Allow("10.0.0.1"), "rejections do not count")

	// Exactly at the window edge the window has not expired yet.
	clk.Advance(window)
	require.False(t, g.Allow("10.0.0.1"))

	clk.Advance(time.Nanosecond)
	for i := 0; i < limit+1; i++ {
		require.True(t, g.Allow("10.0.0.1"), "after reset %d", i+1)
	}
	require.False(t, g.Allow("10.0.0.1"))
}

func TestMemoryGate_AddressesIndependent(t *testing.T) {
	g := NewMemoryGate(time.Minute, 0)
	require.True(t, g.Allow("a"))
	require.False(t, g.Allow("a"))
	require.True(t, g.Allow("b"))
}

func TestMemoryGate_BoundaryBurst(t *testing.T) {
	const limit = 2
	clk := newFakeClock()
	g := NewMemoryGate(time.Second, limit, WithClock(clk.Now))

	// First contact opens the window; fill the rest just before it ends.
	require.True(t, g.Allow("x"))
	clk.Advance(999 * time.Millisecond)
	admitted := 1
	for g.Allow("x") {
		admitted++
	}
	clk.Advance(2 * time.Millisecond)
	for g.Allow("x") {
		admitted++
	}
	assert.Equal(t, 2*(limit+1), admitted)
}

func TestMemoryGate_Sweep(t *testing.T) {
	clk := newFakeClock()
	g := NewMemoryGate(time.Second, 5, WithClock(clk.Now))

	g.Allow("old")
	clk.Advance(800 * time.Millisecond)
	g.Allow("new")
	clk.Advance(300 * time.Millisecond)

	assert.Equal(t, 1, g.Sweep())
	assert.Equal(t, 1, g.Len())
}

func TestMemoryGate_MaxEntries(t *testing.T) {
	clk := newFakeClock()
	g := NewMemoryGate(time.Second, 5, WithClock(clk.Now), WithMaxEntries(2))

	require.True(t, g.Allow("a"))
	require.True(t, g.Allow("b"))
	require.False(t, g.Allow("c"), "table full")
	require.True(t, g.Allow("a"), "known addresses still served")

	clk.Advance(2 * time.Second)
	require.True(t, g.Allow("c"), "expired records are swept to make room")
	assert.LessOrEqual(t, g.Len(), 2)
}

func TestMemoryGate_Concurrent(t *testing.T) {
	const limit = 50
	g := NewMemoryGate(time.Hour, limit)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Check(context.Background(), "shared")
			assert.NoError(t, err)
			if ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(limit+1), admitted.Load())
}

func TestMemoryGate_RunStopsWithContext(t *testing.T) {
	clk := newFakeClock()
	g := NewMemoryGate(time.Millisecond, 1, WithClock(clk.Now))
	for i := 0; i < 10; i++ {
		g.Allow(fmt.Sprintf("peer-%d", i))
	}
	clk.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return g.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
