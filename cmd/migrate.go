package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/engprogress/internal/config"
	"github.com/example/engprogress/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Open applies the schema
		db, err := database.Open(cmd.Context(), cfg.DBType, cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", describeDB(cfg))
		return nil
	},
}

func describeDB(cfg *config.Config) string {
	if cfg.DBType == "postgres" {
		return "postgres"
	}
	return "sqlite " + cfg.DBPath
}
