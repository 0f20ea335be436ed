package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"account_backend/internal/app/di"
	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
	"account_backend/internal/platform/config"
	"account_backend/internal/platform/db"
	"account_backend/internal/platform/password"
)

// RoleGranter changes the role of an account.
type RoleGranter interface {
	GrantRole(ctx context.Context, nickname string, role entity.Role) (*entity.PublicProfile, error)
}

func newGrantRoleCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-role <nickname> <user|admin>",
		Short: "Set the role of an account",
		Long: `Set the role of an active account. This is the only way to create an admin.
Tokens issued before the change keep their old role until they expire.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := db.OpenDB(cfg.DB)
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer func() { _ = sqlDB.Close() }()
			}

			// Evict the cached profile when Redis is reachable; otherwise it expires after the cache TTL.
			rdb, err := connectRedis(cmd.Context(), cfg.Redis)
			if err != nil {
				slog.Warn("Redis unavailable. Cached profile will expire on its own.", "error", err)
			}
			if rdb != nil {
				defer func() { _ = rdb.Close() }()
			}

			uc := usecase.NewAccountUsecase(
				di.NewAccountRepository(rdb, gdb, cfg.Redis.CacheTTL),
				password.NewHasher(cfg.Password.Iterations),
				nil,
				usecase.NewConcurrencyGuard(cfg.Precondition.Tolerance),
			)
			return runGrantRole(cmd, uc, args[0], entity.Role(args[1]))
		},
	}
}

func runGrantRole(cmd *cobra.Command, granter RoleGranter, nickname string, role entity.Role) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	profile, err := granter.GrantRole(ctx, nickname, role)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	slog.Info("role granted", "account_id", profile.ID, "nickname", profile.Nickname, "role", profile.Role)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", profile.Nickname, profile.ID, profile.Role)
	return nil
}
