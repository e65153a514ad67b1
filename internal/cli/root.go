package cli

import (
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"SafeDeal/internal/config"
	"SafeDeal/internal/database"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the SafeDeal CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "safedeal",
		Short: "SafeDeal - buyer requests, offers and milestone escrow",
		Long:  "SafeDeal runs the offer negotiation and escrow settlement API.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

	return cmd
}

// openDatabase loads the configuration and connects, optionally migrating.
func openDatabase(opts *RootOptions, migrate bool) (config.Config, *gorm.DB, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return config.Config{}, nil, err
	}

	if migrate {
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return config.Config{}, nil, err
		}
		log.Println("✅ Database connected and migrated successfully")
	}
	return cfg, db, nil
}
