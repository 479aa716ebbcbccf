package pipeline

import "sync/atomic"

// Clock stamps each consumed event with a strictly increasing sequence
// number for the current run. The driver is the only writer; atomics let
// metrics and tests read it concurrently.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
