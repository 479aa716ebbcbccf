package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/replyguard/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	RunID   string
	EventID string
	Limit   int
	Runs    bool
}

// HistoryEntry is one journaled outcome.
type HistoryEntry struct {
	RunID      string    `json:"run_id"`
	Seq        int64     `json:"seq"`
	EventID    string    `json:"event_id"`
	Origin     string    `json:"origin"`
	Author     string    `json:"author,omitempty"`
	Terms      []string  `json:"terms"`
	Result     string    `json:"result"`
	Path       []string  `json:"path"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryRun is one journaled run.
type HistoryRun struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DryRun     bool      `json:"dry_run"`
	Classifier string    `json:"classifier"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled reply outcomes",
		Long: `Show what earlier runs did, from the outcome journal.

The journal is informational: the replied-ids log alone decides whether a
comment is answered again.

Examples:
  replyguard history --journal ./replyguard.db
  replyguard history --journal ./replyguard.db --runs
  replyguard history --journal ./replyguard.db --event abc123 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the SQLite outcome journal (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "only outcomes of this run")
	cmd.Flags().StringVar(&opts.EventID, "event", "", "only outcomes for this comment id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of outcomes (0 = all)")
	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "list runs instead of outcomes")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	path := opts.Journal
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions, cmd.Flags().Changed("config"))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal configured (use --journal or journal.path)")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	j, err := journal.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.Runs {
		runs, err := j.ReadRuns(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitFailure, "failed to read runs", err)
		}
		out := make([]HistoryRun, 0, len(runs))
		for _, r := range runs {
			out = append(out, HistoryRun{RunID: r.ID, StartedAt: r.StartedAt, DryRun: r.DryRun, Classifier: r.Classifier})
		}
		if opts.Format == "json" {
			return formatter.Success(out)
		}
		return outputRunsText(formatter, out)
	}

	entries, err := j.ReadEntries(ctx, journal.Query{
		RunID:   opts.RunID,
		EventID: opts.EventID,
		Limit:   opts.Limit,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to read outcomes", err)
	}
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		terms := e.Terms
		if terms == nil {
			terms = []string{}
		}
		out = append(out, HistoryEntry{
			RunID:      e.RunID,
			Seq:        e.Seq,
			EventID:    e.EventID,
			Origin:     e.Origin,
			Author:     e.Author,
			Terms:      terms,
			Result:     e.Result,
			Path:       e.Path,
			Error:      e.Error,
			RecordedAt: e.RecordedAt,
		})
	}
	if opts.Format == "json" {
		return formatter.Success(out)
	}
	return outputHistoryText(formatter, out)
}

func outputRunsText(f *OutputFormatter, runs []HistoryRun) error {
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(f.Writer, "%s  %s  %s  classifier=%s\n", r.StartedAt.Format(time.RFC3339), r.RunID, mode, r.Classifier)
	}
	return nil
}

func outputHistoryText(f *OutputFormatter, entries []HistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No outcomes recorded.")
		return nil
	}

	run := ""
	for _, e := range entries {
		if e.RunID != run {
			run = e.RunID
			fmt.Fprintf(f.Writer, "Run %s\n", run)
		}
		author := e.Author
		if author == "" {
			author = "[deleted]"
		}
		fmt.Fprintf(f.Writer, "  [%d] %s /r/%s u/%s %s: %s\n",
			e.Seq, e.EventID, e.Origin, author, e.Result, strings.Join(e.Terms, ", "))
		if e.Error != "" {
			fmt.Fprintf(f.Writer, "      error: %s\n", e.Error)
		}
	}
	return nil
}
