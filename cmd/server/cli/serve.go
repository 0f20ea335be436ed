package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"account_backend/internal/app/di"
	"account_backend/internal/app/router"
	accounthandler "account_backend/internal/feature/account/transport/handler"
	"account_backend/internal/feature/account/usecase"
	"account_backend/internal/platform/config"
	"account_backend/internal/platform/db"
	platformhandler "account_backend/internal/platform/http/handler"
	jwtmw "account_backend/internal/platform/jwt"
	"account_backend/internal/platform/password"
	platformredis "account_backend/internal/platform/redis"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	gin.SetMode(cfg.Server.Mode)

	// db
	gdb, err := db.OpenDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	checks := []platformhandler.Check{{Name: "database", Ping: sqlDB.PingContext}}

	// Redis
	rdb, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// JWT_SECRET check
	secret := cfg.JWT.Secret
	if secret == "" {
		slog.Warn("JWT_SECRET is not set; using a random secret. Tokens will not survive a restart.")
		if secret, err = randomSecret(); err != nil {
			return err
		}
	}
	tokens := jwtmw.NewTokenService(secret, cfg.JWT.TTL)

	// Repository, usecase and handler
	accountRepo := di.NewAccountRepository(rdb, gdb, cfg.Redis.CacheTTL)
	accountUC := usecase.NewAccountUsecase(
		accountRepo,
		password.NewHasher(cfg.Password.Iterations),
		tokens,
		usecase.NewConcurrencyGuard(cfg.Precondition.Tolerance),
	)
	accountH := accounthandler.NewAccountHandler(accountUC)

	r := router.NewRouter(accountH, tokens, cfg.Server.CORSOrigins, checks...)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// connectRedis returns a nil client when Redis is not configured.
func connectRedis(ctx context.Context, cfg platformredis.Config) (*redis.Client, error) {
	if !cfg.Enabled() {
		slog.Info("REDIS_HOST is not set. Running without cache.")
		return nil, nil
	}
	return platformredis.NewRedisClient(ctx, cfg)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
