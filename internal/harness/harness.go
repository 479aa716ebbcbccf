package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/replyguard/internal/action"
	"github.com/roach88/replyguard/internal/classify"
	"github.com/roach88/replyguard/internal/dedup"
	"github.com/roach88/replyguard/internal/denylist"
	"github.com/roach88/replyguard/internal/event"
	"github.com/roach88/replyguard/internal/feed"
	"github.com/roach88/replyguard/internal/journal"
	"github.com/roach88/replyguard/internal/pipeline"
	"github.com/roach88/replyguard/internal/prefilter"
)

// RunID is the fixed run id used for every scenario.
const RunID = "scenario-run"

// fixedNow is the journal clock for scenario runs.
var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// memLog is an in-memory durable log.
type memLog struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (m *memLog) WriteString(s string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.WriteString(s)
}

func (m *memLog) Sync() error  { return nil }
func (m *memLog) Close() error { return nil }

func (m *memLog) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// fakeReplier answers according to the scenario.
type fakeReplier struct {
	spec     ReplierSpec
	attempts int
	replies  []Reply
}

func (f *fakeReplier) PostReply(_ context.Context, id, message string) error {
	f.attempts++
	switch f.spec.behaviour(id) {
	case ReplyForbidden:
		return fmt.Errorf("post reply %s: %w", id, action.ErrPermission)
	case ReplyError:
		return errors.New("post reply: service unavailable")
	}
	f.replies = append(f.replies, Reply{EventID: id, Message: message})
	return nil
}

// stopAfter stops the driver once every scripted event was handled.
type stopAfter struct {
	trace *[]TraceEvent
	n     int
}

func (s stopAfter) Stopping() bool {
	return len(*s.trace) >= s.n
}

// Run executes a scenario and evaluates its assertions. The returned error
// reports a harness failure; assertion failures are in Result.Errors.
func Run(s *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	log := &memLog{}
	store := dedup.New("scenario-dedup", dedup.WithOpener(func(string) (dedup.LogFile, error) {
		return log, nil
	}))
	for _, id := range s.Dedup {
		if err := store.Append(id); err != nil {
			return nil, fmt.Errorf("seed dedup store: %w", err)
		}
	}

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	name := s.Classifier
	if name == "" {
		name = classify.NameWord
	}
	inner, err := classify.New(name)
	if err != nil {
		return nil, err
	}
	classifier := &classify.Counting{Inner: inner}

	sets := denylist.Sets{
		Origins: denylist.NewSet(s.Denylist.Origins...),
		Authors: denylist.NewSet(s.Denylist.Authors...),
		Terms:   denylist.NewSet(s.Denylist.Terms...),
	}

	replier := &fakeReplier{spec: s.Replier}
	var dryOut bytes.Buffer
	var act action.Action
	if s.DryRun {
		act = action.NewDryRun(&dryOut, logger)
	} else {
		act = action.NewTransaction(replier, store, action.WithLogger(logger))
	}

	events := make([]event.Event, len(s.Events))
	for i, e := range s.Events {
		events[i] = event.Event{ID: e.ID, Origin: e.Origin, Author: e.Author, Body: e.Body}
	}

	result := NewResult()
	d, err := pipeline.New(pipeline.Deps{
		Source:     feed.NewSlice(events...),
		Filter:     prefilter.New(sets, s.Bot, store),
		Classifier: classifier,
		Action:     act,
		Store:      store,
	},
		pipeline.WithLogger(logger),
		pipeline.WithRunIDGenerator(pipeline.NewFixedGenerator(RunID)),
		pipeline.WithRunInfo(s.DryRun, name),
		pipeline.WithJournal(j),
		pipeline.WithNow(func() time.Time { return fixedNow }),
		pipeline.WithObserver(func(step pipeline.Step) {
			result.Trace = append(result.Trace, traceEvent(step))
		}),
		pipeline.WithStopper(stopAfter{trace: &result.Trace, n: len(events)}),
	)
	if err != nil {
		return nil, err
	}

	if err := d.Run(ctx); err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	entries, err := j.ReadEntries(ctx, journal.Query{RunID: RunID})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	result.Replies = append(result.Replies, replier.replies...)
	result.Attempts = replier.attempts
	result.DedupLog = log.String()
	result.ClassifierCalls = classifier.Calls()
	result.Journaled = len(entries)
	result.DryRunOutput = dryOut.String()

	for _, err := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(err.Error())
	}
	return result, nil
}

func traceEvent(step pipeline.Step) TraceEvent {
	te := TraceEvent{
		Seq:     step.Seq,
		EventID: step.Event.ID,
		Verdict: string(step.Verdict.Reason),
		Trigger: step.Verdict.Trigger,
		Terms:   step.Terms,
	}
	if o := step.Outcome; o != nil {
		te.Result = string(o.Result)
		for _, st := range o.Path {
			te.Path = append(te.Path, st.String())
		}
	}
	return te
}
