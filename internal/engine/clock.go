package engine

import "sync/atomic"

// Sequencer hands out event seq numbers. Next must be strictly increasing.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for step event ordering.
//
// Events are stamped with strictly increasing seq numbers instead of wall
// time, so a replayed run orders its events identically.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to continue a journaled run.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
