// Package cli implements the account server command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"account_backend/internal/platform/config"
	"account_backend/internal/platform/logging"
)

// Execute creates the root command tree and runs it.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "account-server",
		Short:         "User account service: registration, login, profiles and soft delete",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env
			if err := godotenv.Load(".env"); err != nil {
				slog.Debug(".env not found; using system environment variables")
			}
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if _, err := logging.Setup(loaded.Log, os.Stderr); err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newServeCmd(cfg))
	cmd.AddCommand(newMigrateCmd(cfg))
	cmd.AddCommand(newGrantRoleCmd(cfg))

	return cmd
}
