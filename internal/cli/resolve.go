package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"visualroutine/internal/reminder"
)

// ResolveResult is the next firing instant for a time of day
type ResolveResult struct {
	TimeOfDay string `json:"timeOfDay" yaml:"time_of_day"`
	Now       string `json:"now" yaml:"now"`
	FiresAt   string `json:"firesAt" yaml:"fires_at"`
	Delay     string `json:"delay" yaml:"delay"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var now string

	cmd := &cobra.Command{
		Use:   "resolve <HH:MM>",
		Short: "Show when a reminder for a time of day would fire",
		Long: `Resolve a time of day to the instant its reminder would fire.

Times up to five minutes in the past fire one minute from now; older
times roll over to tomorrow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args[0], now, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&now, "now", "", "reference instant in RFC3339 (default: current time)")

	return cmd
}

func runResolve(opts *RootOptions, timeOfDay, nowFlag string, w io.Writer) error {
	now := time.Now()
	if nowFlag != "" {
		parsed, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
		now = parsed
	}

	at, err := reminder.Resolve(timeOfDay, now)
	if err != nil {
		return err
	}

	result := ResolveResult{
		TimeOfDay: timeOfDay,
		Now:       now.Format(time.RFC3339),
		FiresAt:   at.Format(time.RFC3339),
		Delay:     at.Sub(now).String(),
	}

	return writeOutput(w, opts.Format, result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s fires at %s (in %s)\n", result.TimeOfDay, result.FiresAt, result.Delay)
		return err
	})
}
