// Package adapters provides repository implementations for the account feature.
package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"account_backend/internal/feature/account/domain/entity"
	"account_backend/internal/feature/account/usecase"
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// accountGorm is the GORM implementation of the AccountRepository interface.
// It works with the MySQL, PostgreSQL and SQLite dialects.
type accountGorm struct {
	db *gorm.DB
}

// Compile-time check to ensure accountGorm implements AccountRepository.
var _ usecase.AccountRepository = (*accountGorm)(nil)

// NewAccountGorm creates a new instance of accountGorm.
func NewAccountGorm(db *gorm.DB) *accountGorm {
	return &accountGorm{db: db}
}

// Create inserts the account. A nickname collision returns usecase.ErrNicknameTaken.
func (r *accountGorm) Create(ctx context.Context, a *entity.Account) error {
	if a == nil {
		return errors.New("account is nil")
	}
	normalizeTimes(a)
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrNicknameTaken
		}
		return err
	}
	return nil
}

// FindActiveByNickname looks up a non-deleted account by nickname.
func (r *accountGorm) FindActiveByNickname(ctx context.Context, nickname string) (*entity.Account, error) {
	return r.first(ctx, "nickname = ? AND deleted_at IS NULL", nickname)
}

// FindActiveByID looks up a non-deleted account by ID.
func (r *accountGorm) FindActiveByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.first(ctx, "id = ? AND deleted_at IS NULL", id)
}

// FindByID looks up an account by ID including soft-deleted ones.
func (r *accountGorm) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.first(ctx, "id = ?", id)
}

// Update reads the account, applies mutate and writes the mutable columns
// with a compare-and-swap on updated_at. Nickname, ID and CreatedAt are
// never written.
func (r *accountGorm) Update(ctx context.Context, id string, mutate func(*entity.Account) error) (*entity.Account, error) {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	observed := a.UpdatedAt.UTC()

	if err := mutate(a); err != nil {
		return nil, err
	}
	normalizeTimes(a)

	result := r.db.WithContext(ctx).
		Model(&entity.Account{}).
		Where("id = ? AND updated_at = ?", id, observed).
		Updates(map[string]interface{}{
			"first_name":    a.FirstName,
			"last_name":     a.LastName,
			"password_hash": a.PasswordHash,
			"salt":          a.Salt,
			"iterations":    a.Iterations,
			"role":          a.Role,
			"deleted_at":    a.DeletedAt,
			"updated_at":    a.UpdatedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, usecase.ErrConcurrentUpdate
	}
	return a, nil
}

func (r *accountGorm) first(ctx context.Context, query string, args ...interface{}) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.WithContext(ctx).Where(query, args...).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrAccountNotFound
		}
		return nil, err
	}
	normalizeTimes(&a)
	return &a, nil
}

// normalizeTimes stores and compares timestamps in UTC so the
// compare-and-swap matches across drivers.
func normalizeTimes(a *entity.Account) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if a.DeletedAt != nil {
		t := a.DeletedAt.UTC()
		a.DeletedAt = &t
	}
}

// isDuplicateKey detects unique constraint violations. gorm translates them
// to ErrDuplicatedKey when TranslateError is enabled; raw MySQL, PostgreSQL
// and SQLite errors are checked as well.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
