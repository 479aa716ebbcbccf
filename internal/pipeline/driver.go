package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/replyguard/internal/action"
	"github.com/roach88/replyguard/internal/classify"
	"github.com/roach88/replyguard/internal/event"
	"github.com/roach88/replyguard/internal/feed"
	"github.com/roach88/replyguard/internal/journal"
	"github.com/roach88/replyguard/internal/metrics"
	"github.com/roach88/replyguard/internal/prefilter"
	"github.com/roach88/replyguard/internal/reply"
	"github.com/roach88/replyguard/internal/textnorm"
)

// DefaultFeedPause is how long the driver waits after a feed error before
// asking again.
const DefaultFeedPause = time.Second

// Store is the part of the dedup store the driver manages on shutdown.
type Store interface {
	Flush() error
	Pending() int
}

// Stopper tells the driver when to stop taking new events.
type Stopper interface {
	Stopping() bool
}

// Journal records runs and outcomes. Write failures are logged only.
type Journal interface {
	WriteRun(ctx context.Context, r journal.Run) error
	WriteEntry(ctx context.Context, e journal.Entry) error
}

// Step describes what happened to one consumed event.
type Step struct {
	Seq     int64
	Event   event.Event
	Verdict prefilter.Verdict
	// Terms is empty when the event was not eligible or nothing matched.
	Terms []string
	// Outcome is nil when no action was performed.
	Outcome *action.Outcome
}

// Observer receives every step, in order, on the driver goroutine.
type Observer func(Step)

// Deps are the required collaborators.
type Deps struct {
	Source     feed.Source
	Filter     *prefilter.Filter
	Classifier classify.Classifier
	Action     action.Action
	Store      Store
}

// Driver is the single-writer event loop.
type Driver struct {
	source     feed.Source
	filter     *prefilter.Filter
	classifier classify.Classifier
	terms      []string
	action     action.Action
	store      Store

	stopper  Stopper
	journal  Journal
	metrics  *metrics.Metrics
	observer Observer
	logger   *slog.Logger

	clock     *Clock
	runGen    RunIDGenerator
	runID     string
	runInfo   journal.Run
	feedPause time.Duration
	now       func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithStopper installs the interrupt controller.
func WithStopper(s Stopper) Option {
	return func(d *Driver) {
		d.stopper = s
	}
}

// WithJournal enables the audit trail.
func WithJournal(j Journal) Option {
	return func(d *Driver) {
		d.journal = j
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithObserver installs a step observer.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observer = o
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(d *Driver) {
		d.runGen = g
	}
}

// WithRunInfo sets the descriptive fields written to the journal.
func WithRunInfo(dryRun bool, classifier string) Option {
	return func(d *Driver) {
		d.runInfo.DryRun = dryRun
		d.runInfo.Classifier = classifier
	}
}

// WithFeedPause sets the wait after a feed error.
func WithFeedPause(p time.Duration) Option {
	return func(d *Driver) {
		d.feedPause = p
	}
}

// WithNow replaces the wall clock used for journal timestamps.
func WithNow(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// New builds a driver. Every field of Deps is required.
func New(deps Deps, opts ...Option) (*Driver, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: nil source")
	case deps.Filter == nil:
		return nil, errors.New("pipeline: nil filter")
	case deps.Classifier == nil:
		return nil, errors.New("pipeline: nil classifier")
	case deps.Action == nil:
		return nil, errors.New("pipeline: nil action")
	case deps.Store == nil:
		return nil, errors.New("pipeline: nil store")
	}

	d := &Driver{
		source:     deps.Source,
		filter:     deps.Filter,
		classifier: deps.Classifier,
		terms:      deps.Filter.Terms(),
		action:     deps.Action,
		store:      deps.Store,
		logger:     slog.Default(),
		clock:      NewClock(),
		runGen:     UUIDv7Generator{},
		feedPause:  DefaultFeedPause,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.runID = d.runGen.Generate()
	d.logger = d.logger.With("run_id", d.runID)
	return d, nil
}

// RunID returns the id of this run.
func (d *Driver) RunID() string {
	return d.runID
}

// Seq returns the sequence number of the last consumed event.
func (d *Driver) Seq() int64 {
	return d.clock.Current()
}

// Run consumes events until ctx is cancelled or the stopper asks to stop,
// then flushes the dedup store. A clean stop returns nil.
//
// Must be called from exactly one goroutine.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("pipeline starting",
		"terms", len(d.terms),
		"dry_run", d.runInfo.DryRun,
	)
	d.writeRun(ctx)

	for !d.stopping(ctx) {
		ev, err := d.source.Next(ctx)
		if err != nil {
			if d.stopping(ctx) {
				break
			}
			d.logger.Warn("feed error", "error", err)
			d.metrics.FeedError()
			select {
			case <-ctx.Done():
			case <-time.After(d.feedPause):
			}
			continue
		}
		d.handle(ctx, ev)
	}

	return d.shutdown()
}

func (d *Driver) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return d.stopper != nil && d.stopper.Stopping()
}

func (d *Driver) handle(ctx context.Context, ev event.Event) {
	step := Step{Seq: d.clock.Next(), Event: ev}
	defer d.observe(&step)

	step.Verdict = d.filter.Check(ev)
	d.metrics.Event(string(step.Verdict.Reason))
	if !step.Verdict.Eligible() {
		d.logger.Debug("skipped",
			"seq", step.Seq,
			"event_id", ev.ID,
			"origin", ev.Origin,
			"reason", step.Verdict.Reason,
		)
		return
	}

	normalized := textnorm.Normalize(ev.Body)
	terms := d.classifier.Classify(normalized, d.terms)
	d.metrics.Classified()
	if len(terms) == 0 {
		d.logger.Debug("no match",
			"seq", step.Seq,
			"event_id", ev.ID,
			"trigger", step.Verdict.Trigger,
		)
		return
	}
	step.Terms = terms

	// An event taken from the feed is always finished: the feed cannot
	// redeliver it. Stop requests are honored between events.
	c := action.Candidate{
		Event:      ev,
		Normalized: normalized,
		Terms:      event.MatchResult(terms),
		Message:    reply.Format(terms),
	}
	o := d.action.Perform(ctx, c)
	step.Outcome = &o
	d.metrics.Transaction(string(o.Result))
	d.writeEntry(ctx, step)
}

func (d *Driver) observe(step *Step) {
	if d.observer != nil {
		d.observer(*step)
	}
}

func (d *Driver) writeRun(ctx context.Context) {
	if d.journal == nil {
		return
	}
	r := d.runInfo
	r.ID = d.runID
	r.StartedAt = d.now()
	if err := d.journal.WriteRun(context.WithoutCancel(ctx), r); err != nil {
		d.metrics.JournalError()
		d.logger.Warn("journal write failed", "error", err)
	}
}

// writeEntry runs after the transaction and outside it, detached from
// cancellation so the outcome of the last transaction is still journaled
// during shutdown.
func (d *Driver) writeEntry(ctx context.Context, step Step) {
	if d.journal == nil || step.Outcome == nil {
		return
	}
	o := step.Outcome
	e := journal.Entry{
		RunID:      d.runID,
		Seq:        step.Seq,
		EventID:    step.Event.Key(),
		Origin:     step.Event.Origin,
		Terms:      step.Terms,
		Result:     string(o.Result),
		RecordedAt: d.now(),
	}
	if name, ok := step.Event.AuthorName(); ok {
		e.Author = name
	}
	for _, s := range o.Path {
		e.Path = append(e.Path, s.String())
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	if err := d.journal.WriteEntry(context.WithoutCancel(ctx), e); err != nil {
		d.metrics.JournalError()
		d.logger.Warn("journal write failed", "event_id", step.Event.ID, "error", err)
	}
}

func (d *Driver) shutdown() error {
	pending := d.store.Pending()
	if err := d.store.Flush(); err != nil {
		left := d.store.Pending()
		d.logger.Error("dedup flush failed; these events may be handled again after restart",
			"pending", left,
			"error", err,
		)
		return &FlushError{Pending: left, Err: err}
	}
	d.logger.Info("pipeline stopped",
		"events", d.clock.Current(),
		"flushed", pending,
	)
	return nil
}
