package cli

import (
	"github.com/spf13/cobra"

	"SafeDeal/internal/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase(rootOpts, true)
			if err != nil {
				return err
			}
			return database.Close(db)
		},
	}
}
