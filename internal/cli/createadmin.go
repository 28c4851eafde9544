package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"visitlog/internal/auth/secrets"
	authService "visitlog/internal/auth/service"
	authStore "visitlog/internal/auth/store"
	"visitlog/internal/platform/config"
	"visitlog/internal/platform/postgres"
	dErrors "visitlog/pkg/domain-errors"
)

func newCreateAdminCmd() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long:  "Create an admin account in the database. When no password is given a random one is generated and printed once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateAdmin(cmd.Context(), username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "username for the account")
	cmd.Flags().StringVar(&password, "password", "", "password (generated when empty)")

	return cmd
}

func runCreateAdmin(ctx context.Context, username, password string) error {
	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("VISITLOG_DATABASE_URL must be set to create an account")
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	generated := password == ""
	if generated {
		password, err = secrets.Generate()
		if err != nil {
			return err
		}
	}

	svc := authService.New(authStore.NewPostgres(db), nil)
	user, err := svc.CreateUser(ctx, username, password, true)
	if err != nil {
		// Rerunning the command must not fail a provisioning script.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			fmt.Printf("account %q already exists, nothing to do\n", username)
			return nil
		}
		return err
	}

	fmt.Printf("created admin account %q (id %s)\n", user.Username, user.ID)
	if generated {
		fmt.Printf("generated password: %s\n", password)
		fmt.Println("store it now, it will not be shown again")
	}
	return nil
}
