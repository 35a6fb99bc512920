package message

import "sync/atomic"

// Clock is the engine's shared logical time source, measured in ticks.
type Clock interface {
	Now() int64
}

// TickClock is a monotonic tick counter safe for concurrent readers.
type TickClock struct {
	tick atomic.Int64
}

// NewTickClock creates a clock positioned at the given tick.
func NewTickClock(start int64) *TickClock {
	c := &TickClock{}
	c.tick.Store(start)
	return c
}

// Now returns the current tick.
func (c *TickClock) Now() int64 {
	return c.tick.Load()
}

// Advance moves the clock forward by one tick and returns the new tick.
func (c *TickClock) Advance() int64 {
	return c.tick.Add(1)
}

// Set positions the clock at the given tick. Moving backwards is allowed and
// only meant for tests and replays.
func (c *TickClock) Set(tick int64) {
	c.tick.Store(tick)
}
