// Package gate implements per-address admission control for inbound
// connections.
//
// Both implementations are fixed-window counters: a record holds a count
// and the instant its window started. A contact after the window has
// expired resets the record; a contact while count > limit is rejected
// without incrementing; anything else increments and is admitted. With
// limit L, L+1 contacts are admitted per window, and a burst straddling a
// window boundary can admit up to twice that.
package gate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"quietdrop/internal/utils/log"
)

type Gate interface {
	// Check reports whether a contact from addr is admitted.
	Check(ctx context.Context, addr string) (bool, error)
}

type (
	record struct {
		count int
		start time.Time
	}

	MemoryGate struct {
		mu      sync.Mutex
		records map[string]*record

		window     time.Duration
		limit      int
		maxEntries int
		now        func() time.Time
	}

	Option func(*MemoryGate)
)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *MemoryGate) { g.now = now }
}

// WithMaxEntries bounds the number of tracked addresses. When the table
// is full and a sweep frees nothing, new addresses are rejected.
func WithMaxEntries(n int) Option {
	return func(g *MemoryGate) { g.maxEntries = n }
}

func NewMemoryGate(window time.Duration, limit int, opts ...Option) *MemoryGate {
	g := &MemoryGate{
		records: make(map[string]*record),
		window:  window,
		limit:   limit,
		now:     time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MemoryGate) Check(_ context.Context, addr string) (bool, error) {
	return g.Allow(addr), nil
}

func (g *MemoryGate) Allow(addr string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, ok := g.records[addr]
	if !ok {
		if g.maxEntries > 0 && len(g.records) >= g.maxEntries {
			g.sweepLocked(now)
			if len(g.records) >= g.maxEntries {
				log.Warn("gate table full, rejecting new address",
					zap.String("addr", addr), zap.Int("entries", len(g.records)))
				return false
			}
		}
		rec = &record{start: now}
		g.records[addr] = rec
	}

	if now.Sub(rec.start) > g.window {
		rec.count = 0
		rec.start = now
	}
	if rec.count > g.limit {
		return false
	}
	rec.count++
	return true
}

// Sweep drops records whose window has expired and returns how many were
// removed. A dropped record is indistinguishable from one that would be
// reset on its next contact.
func (g *MemoryGate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sweepLocked(g.now())
}

func (g *MemoryGate) sweepLocked(now time.Time) int {
	n := 0
	for addr, rec := range g.records {
		if now.Sub(rec.start) > g.window {
			delete(g.records, addr)
			n++
		}
	}
	return n
}

func (g *MemoryGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// Run sweeps every interval until ctx is done.
func (g *MemoryGate) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := g.Sweep(); n > 0 {
				log.Debug("gate sweep", zap.Int("evicted", n))
			}
		}
	}
}
