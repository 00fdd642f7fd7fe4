package cli

import (
	"fmt"
	"time"

	"github.com/akumi07/RoleMaster21/internal/repositories"
	"github.com/spf13/cobra"
)

func newOTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Maintain one-time code challenges",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired challenges from the postgres store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			db, cfg, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if cfg.OTP.Store != "postgres" {
				fmt.Fprintf(cmd.OutOrStdout(), "challenge store is %s; expiry is handled by the store\n", cfg.OTP.Store)
				return nil
			}

			purged, err := repositories.NewOTPChallengeRepository(db).DeleteExpired(ctx, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired challenge(s)\n", purged)
			return nil
		},
	})

	return cmd
}
