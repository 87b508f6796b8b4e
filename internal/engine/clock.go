package engine

import "sync/atomic"

// Clock is the monotonic tick counter. Every committed tick is stamped with
// a strictly increasing index from this clock; wall-clock time never enters
// evaluation, so replaying the same inputs reproduces the same trace.
//
// Thread-safety: Clock is safe for concurrent reads (atomic operations),
// though the Evaluator's single-owner design means only one goroutine
// advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new tick index.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the index of the next uncommitted tick.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}

// Reset rewinds the clock to tick 0. Used when the evaluator is reset.
func (c *Clock) Reset() {
	c.tick.Store(0)
}
