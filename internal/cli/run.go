package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/replyguard/internal/action"
	"github.com/roach88/replyguard/internal/classify"
	"github.com/roach88/replyguard/internal/config"
	"github.com/roach88/replyguard/internal/feed"
	"github.com/roach88/replyguard/internal/interrupt"
	"github.com/roach88/replyguard/internal/journal"
	"github.com/roach88/replyguard/internal/metrics"
	"github.com/roach88/replyguard/internal/pipeline"
	"github.com/roach88/replyguard/internal/prefilter"
	"github.com/roach88/replyguard/internal/reddit"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DryRun      bool
	Classifier  string
	Subreddit   string
	FeedPath    string
	JournalPath string
	MetricsAddr string

	// RunIDGenerator overrides the run id source (for testing).
	RunIDGenerator pipeline.RunIDGenerator

	// HardStop overrides os.Exit for a repeated interrupt (for testing).
	HardStop func(code int)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the comment stream and reply",
		Long: `Start the bot.

The bot loads its denylists and the replied-ids log, asks before continuing
if any of them are missing, then consumes the comment stream until
interrupted. Ctrl-C while a reply is being posted waits for the reply to be
recorded; a second Ctrl-C stops immediately.

Exit codes:
  0   - clean shutdown, every replied id flushed
  1   - the replied-ids log could not be flushed, or a runtime failure
  2   - command or config error, or the operator declined to continue
  130 - hard stop after a repeated interrupt

Examples:
  replyguard run --config ./replyguard.yaml
  replyguard run --dry-run --feed ./comments.jsonl
  replyguard run --classifier word --metrics-addr :9090 --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print replies instead of posting them")
	cmd.Flags().StringVar(&opts.Classifier, "classifier", "", "classifier to use (stub|word)")
	cmd.Flags().StringVar(&opts.Subreddit, "subreddit", "", "subreddit to stream (default all)")
	cmd.Flags().StringVar(&opts.FeedPath, "feed", "", "read comments from a JSON-lines file instead of Reddit")
	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "path to the SQLite outcome journal")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")

	return cmd
}

// applyRunFlags overrides config values with flags the user set.
func applyRunFlags(cmd *cobra.Command, opts *RunOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun = opts.DryRun
	}
	if flags.Changed("classifier") {
		cfg.Classifier = opts.Classifier
	}
	if flags.Changed("subreddit") {
		cfg.Reddit.Subreddit = opts.Subreddit
	}
	if flags.Changed("feed") {
		cfg.Feed.Path = opts.FeedPath
	}
	if flags.Changed("journal") {
		cfg.Journal.Path = opts.JournalPath
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
}

func runBot(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.RootOptions, cmd.Flags().Changed("config"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	applyRunFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	in := loadInputs(cfg)
	defer func() {
		if err := in.Store.Close(); err != nil {
			logger.Error("error closing replied-ids log", "error", err)
		}
	}()

	if len(in.Warnings) > 0 {
		printWarnings(cmd.ErrOrStderr(), in.Warnings)
		if !opts.Yes {
			if err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return WrapExitError(ExitCommandError, "not starting", err)
			}
		}
	}

	classifier, err := classify.New(cfg.Classifier)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid classifier", err)
	}

	m := metrics.New(metrics.Gauges{
		DedupPending: in.Store.Pending,
		DedupSize:    in.Store.Len,
	})

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	hardStop := opts.HardStop
	if hardStop == nil {
		hardStop = os.Exit
	}
	ctrl := interrupt.New(parent,
		interrupt.WithLogger(logger),
		interrupt.WithHardStop(hardStop),
		interrupt.WithObserver(m.Interrupted),
	)
	defer ctrl.Release()
	stopWatching := ctrl.Watch(os.Interrupt, syscall.SIGTERM)
	defer stopWatching()

	var client *reddit.Client
	if cfg.NeedsReddit() {
		client, err = reddit.NewClient(reddit.Config{
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			Username:     cfg.Bot.Username,
			Password:     cfg.Reddit.Password,
			UserAgent:    cfg.Bot.UserAgent,
			AuthURL:      cfg.Reddit.AuthURL,
			APIURL:       cfg.Reddit.APIURL,
		}, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create reddit client", err)
		}
	}

	source, closeSource, err := openSource(cfg, client)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open feed", err)
	}
	defer closeSource()

	act := newAction(cfg, client, in, ctrl, cmd.OutOrStdout(), logger)

	pipeOpts := []pipeline.Option{
		pipeline.WithStopper(ctrl),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
		pipeline.WithRunInfo(cfg.DryRun, cfg.Classifier),
	}
	if opts.RunIDGenerator != nil {
		pipeOpts = append(pipeOpts, pipeline.WithRunIDGenerator(opts.RunIDGenerator))
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		pipeOpts = append(pipeOpts, pipeline.WithJournal(j))
	}

	driver, err := pipeline.New(pipeline.Deps{
		Source:     source,
		Filter:     prefilter.New(in.Sets, cfg.Bot.Username, in.Store),
		Classifier: classifier,
		Action:     act,
		Store:      in.Store,
	}, pipeOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}

	logger.Info("bot starting",
		"run_id", driver.RunID(),
		"subreddit", cfg.Reddit.Subreddit,
		"dry_run", cfg.DryRun,
		"classifier", cfg.Classifier,
		"known_ids", in.Store.Loaded(),
	)

	g, gctx := errgroup.WithContext(ctrl.Context())
	g.Go(func() error {
		// The metrics server follows the pipeline down.
		defer ctrl.Release()
		return driver.Run(gctx)
	})
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, m)
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var flushErr *pipeline.FlushError
		if errors.As(err, &flushErr) {
			return WrapExitError(ExitFailure, "replied-ids log not fully flushed", err)
		}
		return WrapExitError(ExitFailure, "runtime failure", err)
	}

	logger.Info("bot stopped", "run_id", driver.RunID(), "events", driver.Seq())
	return nil
}

// openSource picks the JSON-lines feed when configured, else the Reddit stream.
func openSource(cfg *config.Config, client *reddit.Client) (feed.Source, func(), error) {
	if cfg.Feed.Path != "" {
		poll := cfg.Feed.PollInterval
		if poll == 0 {
			poll = feed.DefaultPollInterval
		}
		f, err := feed.OpenJSONL(cfg.Feed.Path, poll)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	if client == nil {
		return nil, nil, errors.New("no feed configured")
	}
	return client.Stream(cfg.Reddit.Subreddit, cfg.Reddit.PollInterval, cfg.Reddit.MaxBackoff), func() {}, nil
}

// newAction returns the dry-run reporter or the live reply transaction.
func newAction(cfg *config.Config, client *reddit.Client, in *inputs, guard action.Guard, out io.Writer, logger *slog.Logger) action.Action {
	if cfg.DryRun {
		return action.NewDryRun(out, logger)
	}
	return action.NewTransaction(client, in.Store,
		action.WithGuard(guard),
		action.WithLogger(logger),
		action.WithReplyTimeout(cfg.ReplyTimeout),
	)
}
