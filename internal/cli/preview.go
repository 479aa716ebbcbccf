package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replyguard/internal/reply"
)

// PreviewResult is the rendered reply.
type PreviewResult struct {
	Terms   []string `json:"terms"`
	Message string   `json:"message"`
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <term>...",
		Short: "Print the reply the bot would post for the given terms",
		Long: `Render the reply text for one or more matched terms, in the order given.

Examples:
  replyguard preview slur1
  replyguard preview slur1 slur2 slur3 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := PreviewResult{Terms: args, Message: reply.Format(args)}
			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	return cmd
}
