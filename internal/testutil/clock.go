package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock is a sched.Clock pinned to an instant that only moves when a
// test advances it. Slot assignment depends on "now", so tests pin the clock
// to make plans reproducible. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock pinned to 2025-03-10 14:45:00 UTC, an
// afternoon instant past the default day-start so anchored slots roll
// forward.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2025, 3, 10, 14, 45, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, simulating time passing between runs.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator is a sched.IDGenerator handing out "id-1", "id-2", ... so
// generated remote IDs are predictable in assertions.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}
