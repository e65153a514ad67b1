package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"SafeDeal/internal/database"
	"SafeDeal/internal/jobs"
	"SafeDeal/internal/services"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close expired buyer requests once and exit",
		Long: `Close every open buyer request whose expiry has passed.

Useful from cron while the API server is down.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase(rootOpts, false)
			if err != nil {
				return err
			}
			defer database.Close(db)

			requests := services.NewBuyerRequestService(db, services.SystemClock, cfg.RequestExpiry)
			closed, err := jobs.NewExpirySweeper(requests, services.SystemClock, cfg.SweepInterval).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %d expired buyer request(s)\n", closed)
			return nil
		},
	}
}
