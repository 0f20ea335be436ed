// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"account_backend/internal/feature/account/adapters"
	"account_backend/internal/feature/account/usecase"
	"account_backend/internal/platform/cache"
)

// NewAccountRepository creates an AccountRepository implementation.
// If Redis is available, profile reads are served through a Redis cache.
// Otherwise, every call goes straight to the database.
func NewAccountRepository(rdb *redis.Client, db *gorm.DB, ttl time.Duration) usecase.AccountRepository {
	repo := adapters.NewAccountGorm(db)
	if rdb != nil {
		return cache.NewCachingAccountRepository(rdb, ttl, repo, "accounts")
	}
	return repo
}
