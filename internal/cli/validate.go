package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/replyguard/internal/config"
)

// ValidationResult summarizes what the bot would load at startup.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Config   config.Config    `json:"config"`
	Origins  int              `json:"blocked_origins"`
	Authors  int              `json:"blocked_authors"`
	Terms    int              `json:"terms"`
	KnownIDs int              `json:"known_ids"`
	Warnings []startupWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check config, denylists and the replied-ids log",
		Long: `Load the configuration, the denylists and the replied-ids log exactly as
run would, and report problems without contacting Reddit.

Missing denylists or a missing replied-ids log are reported as warnings.
An invalid configuration exits with code 2.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts, cmd.Flags().Changed("config"))
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	formatter.VerboseLog("Loaded config %s", opts.Config)

	if err := cfg.Validate(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			_ = formatter.Error(ErrCodeConfig, "invalid config", strings.Split(strings.TrimSpace(verr.Details), "\n"))
		} else {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	in := loadInputs(cfg)
	defer in.Store.Close()

	result := ValidationResult{
		Valid:    true,
		Config:   cfg.Redacted(),
		Origins:  in.Sets.Origins.Len(),
		Authors:  in.Sets.Authors.Len(),
		Terms:    in.Sets.Terms.Len(),
		KnownIDs: in.Store.Loaded(),
		Warnings: in.Warnings,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputValidateText(formatter, result)
}

func outputValidateText(f *OutputFormatter, r ValidationResult) error {
	w := f.Writer
	fmt.Fprintf(w, "Bot:             /u/%s\n", r.Config.Bot.Username)
	fmt.Fprintf(w, "Subreddit:       /r/%s\n", r.Config.Reddit.Subreddit)
	fmt.Fprintf(w, "Classifier:      %s\n", r.Config.Classifier)
	fmt.Fprintf(w, "Dry run:         %t\n", r.Config.DryRun)
	fmt.Fprintf(w, "Blocked origins: %d\n", r.Origins)
	fmt.Fprintf(w, "Blocked authors: %d\n", r.Authors)
	fmt.Fprintf(w, "Trigger terms:   %d\n", r.Terms)
	fmt.Fprintf(w, "Replied ids:     %d\n", r.KnownIDs)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		printWarnings(w, r.Warnings)
		fmt.Fprintf(w, "\n✓ Config valid (%d warning(s))\n", len(r.Warnings))
		return nil
	}
	fmt.Fprintln(w, "\n✓ Config valid")
	return nil
}
