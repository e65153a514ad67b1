package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"SafeDeal/internal/database"
	"SafeDeal/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Migrate, then serve the HTTP API and run the expiry sweeper",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDatabase(rootOpts, true)
			if err != nil {
				return err
			}
			defer database.Close(db)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, db, server.Options{}).Run(ctx)
		},
	}
}
