// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

// DefaultTTL bounds how long a cached account may lag behind the database
// when an invalidation races with a read-through fill.
const DefaultTTL = 30 * time.Second

// CachingAccountRepository decorates an AccountRepository with a Redis
// read-through cache for FindActiveByID. Every other lookup goes to the
// underlying repository, and Update evicts the account's entry.
// Cached entries never contain credentials, so accounts returned from the
// cache have an empty password hash and salt.
type CachingAccountRepository struct {
	usecase.AccountRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// Compile-time check to ensure CachingAccountRepository implements AccountRepository.
var _ usecase.AccountRepository = (*CachingAccountRepository)(nil)

// cachedAccount is the Redis representation of an account without its credentials.
type cachedAccount struct {
	ID        string      `json:"id"`
	Nickname  string      `json:"nickname"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      entity.Role `json:"role"`
	DeletedAt *time.Time  `json:"deletedAt,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newCachedAccount(a *entity.Account) cachedAccount {
	return cachedAccount{
		ID:        a.ID,
		Nickname:  a.Nickname,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		DeletedAt: a.DeletedAt,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (c cachedAccount) account() *entity.Account {
	return &entity.Account{
		ID:        c.ID,
		Nickname:  c.Nickname,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Role:      c.Role,
		DeletedAt: c.DeletedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewCachingAccountRepository decorates inner with Redis caching.
// If ttl is 0, it defaults to DefaultTTL. If namespace is empty, it uses "accounts".
// A nil rdb disables caching.
func NewCachingAccountRepository(rdb *redis.Client, ttl time.Duration, inner usecase.AccountRepository, namespace string) *CachingAccountRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if namespace == "" {
		namespace = "accounts"
	}
	return &CachingAccountRepository{
		AccountRepository: inner,
		rdb:               rdb,
		ttl:               ttl,
		namespace:         namespace,
	}
}

// FindActiveByID checks the cache first, then falls back to the database.
func (c *CachingAccountRepository) FindActiveByID(ctx context.Context, id string) (*entity.Account, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.AccountRepository.FindActiveByID(ctx, id)
	}

	key := c.cacheKey(id)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cached cachedAccount
		if err := json.Unmarshal(b, &cached); err == nil && cached.ID != "" {
			return cached.account(), nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.AccountRepository.FindActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(newCachedAccount(out)); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// Update writes through to the database and evicts the cached entry.
func (c *CachingAccountRepository) Update(ctx context.Context, id string, mutate func(*entity.Account) error) (*entity.Account, error) {
	out, err := c.AccountRepository.Update(ctx, id, mutate)
	if err != nil {
		return nil, err
	}
	if c.rdb != nil {
		_ = c.rdb.Del(ctx, c.cacheKey(id)).Err() // Best effort: the entry expires after ttl anyway
	}
	return out, nil
}

// cacheKey generates the cache key for an account.
func (c *CachingAccountRepository) cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", c.namespace, id)
}
