package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/worktimer/internal/adapters/turso"
	"github.com/emiliopalmerini/worktimer/internal/domain"
)

var (
	identityEmail   string
	identityTeam    string
	identityHistory int
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Show or set the operator identity",
	Long: `Manage the email and team attached to every reported event.

Pages only report once a valid identity is stored.`,
}

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored identity",
	Long: `Show the stored identity and whether it is valid for the configured teams.

Examples:
  worktimer identity show
  worktimer identity show --history 10`,
	Args: cobra.NoArgs,
	RunE: runIdentityShow,
}

var identitySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the operator identity",
	Long: `Store the email and team. Both are validated before saving.

Examples:
  worktimer identity set --email ops@example.com --team intake`,
	Args: cobra.NoArgs,
	RunE: runIdentitySet,
}

func init() {
	identityCmd.AddCommand(identityShowCmd)
	identityCmd.AddCommand(identitySetCmd)

	identityShowCmd.Flags().IntVar(&identityHistory, "history", 0, "Also list the last N identity changes")
	identitySetCmd.Flags().StringVar(&identityEmail, "email", "", "Operator email")
	identitySetCmd.Flags().StringVar(&identityTeam, "team", "", "Operator team, one of the configured teams")
	_ = identitySetCmd.MarkFlagRequired("email")
	_ = identitySetCmd.MarkFlagRequired("team")
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := turso.NewIdentityRepository(db)
	id, err := repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}

	if id == (domain.Identity{}) {
		fmt.Fprintln(out, "No identity stored")
		fmt.Fprintln(out, "\nUse 'worktimer identity set --email <email> --team <team>' to set one")
		fmt.Fprintf(out, "Teams: %s\n", strings.Join(cfg.Teams, ", "))
	} else {
		fmt.Fprintf(out, "Email: %s\n", id.Email)
		fmt.Fprintf(out, "Team:  %s\n", id.Team)
		if err := id.Validate(cfg.Teams); err != nil {
			fmt.Fprintf(out, "Status: invalid (%v), pages will not report\n", err)
		} else {
			fmt.Fprintln(out, "Status: valid")
		}
	}

	if identityHistory <= 0 {
		return nil
	}
	changes, err := repo.History(ctx, identityHistory)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	fmt.Fprintln(out, "\nHistory:")
	for _, c := range changes {
		fmt.Fprintf(out, "  %s  %-6s %s\n", c.ChangedAt.Local().Format(time.DateTime), c.Key, c.Value)
	}
	return nil
}

func runIdentitySet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id := domain.Identity{Email: identityEmail, Team: identityTeam}.Normalize()
	if err := id.Validate(cfg.Teams); err != nil {
		return fmt.Errorf("%w (teams: %s)", err, strings.Join(cfg.Teams, ", "))
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := turso.NewIdentityRepository(db).Save(ctx, id); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", id.Email, id.Team)
	return nil
}
