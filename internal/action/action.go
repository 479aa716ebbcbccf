package action

import (
	"context"
	"errors"

	"github.com/roach88/replyguard/internal/event"
)

// ErrPermission marks a reply the platform refused (banned, locked thread,
// bad credentials). Repliers wrap it so callers can use errors.Is.
var ErrPermission = errors.New("reply not permitted")

// Replier posts a reply to an event. It is not idempotent: two calls produce
// two visible replies.
type Replier interface {
	PostReply(ctx context.Context, eventID, message string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, eventID, message string) error

func (f ReplierFunc) PostReply(ctx context.Context, eventID, message string) error {
	return f(ctx, eventID, message)
}

// Recorder durably records a handled event id.
type Recorder interface {
	Append(id string) error
}

// Guard owns the pending-transaction flag.
type Guard interface {
	Begin()
	End()
}

type noGuard struct{}

func (noGuard) Begin() {}
func (noGuard) End()   {}

// Candidate is a classified event that warrants an action.
type Candidate struct {
	Event      event.Event
	Normalized string
	Terms      event.MatchResult
	Message    string
}

// Action is the side-effect capability the pipeline drives, chosen once at
// startup: *Transaction for live runs, *DryRun for debugging.
type Action interface {
	Perform(ctx context.Context, c Candidate) Outcome
}
