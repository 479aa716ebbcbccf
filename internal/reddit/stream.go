package reddit

import (
	"context"
	"time"

	"github.com/roach88/replyguard/internal/event"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxBackoff   = 16 * time.Second

	seenCapacity = 1000
	fetchRetries = 3
)

// Stream yields comments from a subreddit as they appear. It implements
// feed.Source.
type Stream struct {
	client     *Client
	subreddit  string
	poll       time.Duration
	maxBackoff time.Duration

	seen    *seenSet
	queue   []event.Event
	backoff time.Duration
}

// Stream returns a comment stream for sub. Empty polls back off
// exponentially from poll up to maxBackoff.
func (c *Client) Stream(sub string, poll, maxBackoff time.Duration) *Stream {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if maxBackoff < poll {
		maxBackoff = poll
	}
	return &Stream{
		client:     c,
		subreddit:  sub,
		poll:       poll,
		maxBackoff: maxBackoff,
		seen:       newSeenSet(seenCapacity),
		backoff:    poll,
	}
}

// Next returns the next unseen comment, oldest first.
func (s *Stream) Next(ctx context.Context) (event.Event, error) {
	for len(s.queue) == 0 {
		var batch []event.Event
		err := retry(ctx, fetchRetries, s.poll, s.maxBackoff, func() error {
			var err error
			batch, err = s.client.Comments(ctx, s.subreddit)
			if err != nil {
				s.client.logger.Debug("fetch comments failed", "subreddit", s.subreddit, "error", err)
			}
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return event.Event{}, ctxErr
			}
			return event.Event{}, err
		}

		for _, ev := range batch {
			if s.seen.add(ev.Key()) {
				s.queue = append(s.queue, ev)
			}
		}
		if len(s.queue) > 0 {
			s.backoff = s.poll
			break
		}

		select {
		case <-ctx.Done():
			return event.Event{}, ctx.Err()
		case <-time.After(s.backoff):
		}
		s.backoff *= 2
		if s.backoff > s.maxBackoff {
			s.backoff = s.maxBackoff
		}
	}

	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, nil
}

// seenSet remembers the most recent identifiers, evicting the oldest.
type seenSet struct {
	max   int
	order []string
	m     map[string]struct{}
}

func newSeenSet(max int) *seenSet {
	return &seenSet{max: max, m: make(map[string]struct{}, max)}
}

// add reports whether id was not already present.
func (s *seenSet) add(id string) bool {
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > s.max {
		delete(s.m, s.order[0])
		s.order = s.order[1:]
	}
	return true
}
