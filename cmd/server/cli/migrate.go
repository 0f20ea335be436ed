package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"account_backend/internal/platform/config"
	"account_backend/internal/platform/db"
)

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg := cfg.DB
			dbCfg.RunMigrations = true
			gdb, err := db.OpenDB(dbCfg)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer func() { _ = sqlDB.Close() }()
			}
			slog.Info("migration completed", "driver", dbCfg.Driver)
			return nil
		},
	}
}
