package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/akumi07/RoleMaster21/internal/config"
	"github.com/akumi07/RoleMaster21/internal/database"
	"github.com/spf13/cobra"
)

var verbose bool

// Execute creates the root command tree and runs it.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rolemasterctl",
		Short: "Operate the RoleMaster user directory",
		Long: `rolemasterctl runs maintenance tasks against the RoleMaster directory:
schema migrations, directory listings, admin seeding, OTP cleanup and
development sign-in tokens.

Configuration is read from the environment (and .env) like the API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log database activity to stderr")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newUsersCmd())
	cmd.AddCommand(newOTPCmd())
	cmd.AddCommand(newTokenCmd())

	return cmd
}

func newLogger() *slog.Logger {
	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, nil))
}

// openDatabase loads configuration and connects to the directory store
func openDatabase(ctx context.Context) (*database.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewConnection(ctx, &cfg.Database, newLogger())
	if err != nil {
		return nil, nil, err
	}

	return db, cfg, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}
