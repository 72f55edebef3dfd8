package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"visualroutine/internal/service"
)

// NewBackupCommand creates the backup command with its export and import subcommands.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import a JSON backup of users, activities and progress",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write a backup (default: backup_YYYYMMDD_HHMMSS.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath := ""
			if len(args) == 1 {
				outputPath = args[0]
			}
			return runExport(cmd, rootOpts, outputPath)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Restore a backup into the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0])
		},
	})

	return cmd
}

func runExport(cmd *cobra.Command, opts *RootOptions, outputPath string) error {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	db, err := openDatabase(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.NewBackupService(db).Export(cmd.Context(), outputPath); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%.2f KB)\n", outputPath, float64(info.Size())/1024)
	return nil
}

func runImport(cmd *cobra.Command, opts *RootOptions, inputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	db, err := openDatabase(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := service.NewBackupService(db).Import(cmd.Context(), inputPath); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", inputPath)
	return nil
}
