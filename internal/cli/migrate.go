package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/worktimer/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).
The serve and attach commands apply pending migrations on start.

Examples:
  worktimer migrate      # Run all pending migrations
  worktimer migrate 1    # Migrate to version 1
  worktimer migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	target := -1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return fmt.Errorf("invalid version number: %s", args[0])
		}
		target = v
	}

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate.EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	current, _, err := migrate.CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d\n", current)

	steps, err := migrate.To(ctx, db, target)
	for _, s := range steps {
		fmt.Fprintf(out, "  %s\n", s)
	}
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		fmt.Fprintln(out, "Already at target version")
		return nil
	}
	fmt.Fprintf(out, "Applied %d migration(s)\n", len(steps))
	return nil
}
