package action

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// Transaction is the live act-then-record unit.
type Transaction struct {
	replier  Replier
	recorder Recorder
	guard    Guard
	logger   *slog.Logger

	replyTimeout time.Duration
	afterAct     func()

	state atomic.Int32
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithGuard installs the owner of the pending-transaction flag.
func WithGuard(g Guard) Option {
	return func(t *Transaction) {
		t.guard = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Transaction) {
		t.logger = l
	}
}

// WithReplyTimeout bounds the reply call. Zero (the default) waits until the
// replier returns.
func WithReplyTimeout(d time.Duration) Option {
	return func(t *Transaction) {
		t.replyTimeout = d
	}
}

// WithAfterAct runs fn after a reply is accepted and before it is recorded.
// Used for fault injection at the crash window.
func WithAfterAct(fn func()) Option {
	return func(t *Transaction) {
		t.afterAct = fn
	}
}

// NewTransaction builds a transaction that posts with r and records with rec.
func NewTransaction(r Replier, rec Recorder, opts ...Option) *Transaction {
	t := &Transaction{
		replier:  r,
		recorder: rec,
		guard:    noGuard{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current state. Safe from any goroutine.
func (t *Transaction) State() State {
	return State(t.state.Load())
}

func (t *Transaction) enter(o *Outcome, s State) {
	t.state.Store(int32(s))
	o.Path = append(o.Path, s)
}

// Perform runs the state machine for one candidate.
func (t *Transaction) Perform(ctx context.Context, c Candidate) Outcome {
	ev := c.Event
	o := Outcome{EventID: ev.ID}

	t.guard.Begin()
	defer t.guard.End()

	t.enter(&o, Acting)

	// An interrupt must not abort a reply that may already be on the wire.
	actx := context.WithoutCancel(ctx)
	if t.replyTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(actx, t.replyTimeout)
		defer cancel()
	}

	if err := t.replier.PostReply(actx, ev.ID, c.Message); err != nil {
		t.enter(&o, Failed)
		o.Result = ResultRejected
		o.Err = err
		if errors.Is(err, ErrPermission) {
			t.logger.Warn("reply not permitted; check that the account may comment in this channel and that credentials are valid",
				"event_id", ev.ID,
				"origin", ev.Origin,
				"error", err,
			)
		} else {
			t.logger.Warn("reply failed",
				"event_id", ev.ID,
				"origin", ev.Origin,
				"error", err,
			)
		}
		t.enter(&o, Idle)
		return o
	}

	if t.afterAct != nil {
		t.afterAct()
	}

	t.enter(&o, Recording)
	if err := t.recorder.Append(ev.ID); err != nil {
		t.enter(&o, RecordFailed)
		o.Result = ResultRecordFailed
		o.Err = err
		t.logger.Error("reply posted but not durably recorded; a restart may reply again",
			"event_id", ev.ID,
			"origin", ev.Origin,
			"error", err,
			"event", "record_failed",
		)
		t.enter(&o, Idle)
		return o
	}

	o.Result = ResultRecorded
	t.logger.Info("replied",
		"event_id", ev.ID,
		"origin", ev.Origin,
		"terms", []string(c.Terms),
	)
	t.enter(&o, Idle)
	return o
}
