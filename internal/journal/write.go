package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Run describes one pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	DryRun     bool
	Classifier string
}

// Entry is one recorded action outcome.
type Entry struct {
	RunID      string
	Seq        int64
	EventID    string // normalized
	Origin     string
	Author     string // empty when deleted
	Terms      []string
	Result     string
	Path       []string
	Error      string
	RecordedAt time.Time
}

const timeLayout = time.RFC3339Nano

// WriteRun records the start of a run. Writing the same run twice is a no-op.
func (j *Journal) WriteRun(ctx context.Context, r Run) error {
	classifier := r.Classifier
	if classifier == "" {
		classifier = "stub"
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, dry_run, classifier)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		boolToInt(r.DryRun),
		classifier,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEntry records one outcome. A second write with the same (run, seq) is
// silently ignored.
func (j *Journal) WriteEntry(ctx context.Context, e Entry) error {
	terms := e.Terms
	if terms == nil {
		terms = []string{}
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(run_id, seq, event_id, origin, author, terms, result, path, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.RunID,
		e.Seq,
		e.EventID,
		e.Origin,
		nullIfEmpty(e.Author),
		string(termsJSON),
		e.Result,
		strings.Join(e.Path, ">"),
		nullIfEmpty(e.Error),
		e.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
