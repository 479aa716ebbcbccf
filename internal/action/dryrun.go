package action

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// DryRun reports what would have been posted instead of posting it. It never
// records anything in the dedup store, since no action took place.
type DryRun struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewDryRun writes reports to w.
func NewDryRun(w io.Writer, logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{w: w, logger: logger}
}

// Perform writes the report for c.
func (d *DryRun) Perform(_ context.Context, c Candidate) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := io.WriteString(d.w, Report(c)); err != nil {
		d.logger.Warn("write dry-run report", "event_id", c.Event.ID, "error", err)
	}
	d.logger.Debug("dry run: reply suppressed", "event_id", c.Event.ID, "origin", c.Event.Origin)

	return Outcome{EventID: c.Event.ID, Result: ResultDryRun, Path: []State{Idle}}
}

// Report renders the would-be reply details.
func Report(c Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subreddit: /r/%s\n", c.Event.Origin)
	fmt.Fprintf(&b, "Comment id: %s\n", c.Event.ID)
	if author, ok := c.Event.AuthorName(); ok {
		fmt.Fprintf(&b, "Author: %s\n", author)
	} else {
		b.WriteString("Author Deleted\n")
	}
	b.WriteString("Original comment:\n")
	b.WriteString(c.Event.Body)
	b.WriteString("\nFormatted comment:\n")
	b.WriteString(c.Normalized)
	b.WriteString("\nCaught words:\n")
	b.WriteString(strings.Join(c.Terms, ", "))
	b.WriteString("\nMessage reply:\n")
	b.WriteString(c.Message)
	b.WriteString("\n\n")
	return b.String()
}
