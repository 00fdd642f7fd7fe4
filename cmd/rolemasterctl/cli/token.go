package cli

import (
	"fmt"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/config"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var userID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <email>",
		Short: "Sign an identity provider token for POST /session",
		Long: `Sign a provider token with AUTH_PROVIDER_SECRET, for local
development without the hosted identity provider. The token can only be
exchanged for a session; it is not a session itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Server.Env == "production" {
				return fmt.Errorf("refusing to sign provider tokens in production")
			}

			token, err := auth.SignProviderToken(cfg.Auth.ProviderSecret, cfg.Auth.ProviderIssuer, userID, args[0], ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "subject to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 5*time.Minute, "token lifetime")

	return cmd
}
