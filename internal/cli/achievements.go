package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"visualroutine/internal/progress"
)

// AchievementRow is one catalog entry as printed by the achievements command
type AchievementRow struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Threshold   int    `json:"threshold" yaml:"threshold"`
	Description string `json:"description" yaml:"description"`
}

// NewAchievementsCommand creates the achievements command.
func NewAchievementsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "List the built-in achievement catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAchievements(rootOpts, cmd.OutOrStdout())
		},
	}
}

func runAchievements(opts *RootOptions, w io.Writer) error {
	var rows []AchievementRow
	for _, a := range progress.Catalog() {
		rows = append(rows, AchievementRow{
			ID:          a.ID,
			Name:        a.Name,
			Category:    string(a.Category),
			Threshold:   a.Threshold,
			Description: a.Description,
		})
	}

	return writeOutput(w, opts.Format, rows, func(w io.Writer) error {
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "%-16s %-8s %3d  %s\n", row.ID, row.Category, row.Threshold, row.Description); err != nil {
				return err
			}
		}
		return nil
	})
}
