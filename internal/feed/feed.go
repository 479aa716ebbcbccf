// Package feed provides event sources for the pipeline.
//
// A Source is an unbounded stream: exhaustion means "wait for more", never
// end-of-stream. Next blocks until an event is available or ctx is done.
package feed

import (
	"context"
	"sync"

	"github.com/roach88/replyguard/internal/event"
)

// Source yields events one at a time.
type Source interface {
	Next(ctx context.Context) (event.Event, error)
}

// Slice is an in-memory source. Once its events are consumed, Next blocks
// until more are pushed or ctx is cancelled.
type Slice struct {
	mu     sync.Mutex
	events []event.Event
	pos    int
	wake   chan struct{}
}

// NewSlice returns a source that yields events in order.
func NewSlice(events ...event.Event) *Slice {
	return &Slice{
		events: append([]event.Event(nil), events...),
		wake:   make(chan struct{}),
	}
}

// Push appends events and wakes a blocked Next.
func (s *Slice) Push(events ...event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	close(s.wake)
	s.wake = make(chan struct{})
}

// Remaining returns how many events have not been yielded.
func (s *Slice) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events) - s.pos
}

// Next returns the next event.
func (s *Slice) Next(ctx context.Context) (event.Event, error) {
	for {
		s.mu.Lock()
		if s.pos < len(s.events) {
			ev := s.events[s.pos]
			s.pos++
			s.mu.Unlock()
			return ev, nil
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return event.Event{}, ctx.Err()
		case <-wake:
		}
	}
}
