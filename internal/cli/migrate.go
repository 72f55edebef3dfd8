package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"visualroutine/internal/config"
	"visualroutine/internal/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
			return nil
		},
	}
}

// openDatabase connects using the server configuration and brings the schema up to date
func openDatabase(ctx context.Context, opts *RootOptions) (*database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.DBPath != "" {
		cfg.DatabaseType = "sqlite"
		cfg.DatabasePath = opts.DBPath
	}

	if opts.Verbose {
		log.Printf("Opening %s database", cfg.DatabaseType)
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.MigrationsPath != "" {
		err = db.RunMigrationsFrom(ctx, cfg.MigrationsPath)
	} else {
		err = db.RunMigrations(ctx)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
