// Package db opens the GORM connection for the configured SQL dialect.
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	gmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"account_backend/internal/feature/account/domain/entity"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	retryInterval = 3 * time.Second
)

// Config holds the connection settings. Host/Port are used for TCP,
// InstanceName for a Cloud SQL unix socket and Path for SQLite.
type Config struct {
	Driver         string        `mapstructure:"driver"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	InstanceName   string        `mapstructure:"instance_connection_name"`
	Path           string        `mapstructure:"path"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RunMigrations  bool          `mapstructure:"run_migrations"`
}

// Opener opens a GORM connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN returns the data source name for cfg.Driver.
// An empty driver is treated as MySQL.
func BuildDSN(cfg Config) string {
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.InstanceName != "" {
			return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.InstanceName, cfg.User, cfg.Password, cfg.Name)
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
	case DriverSQLite:
		if cfg.Path == "" {
			return "file:accounts.db?_busy_timeout=5000"
		}
		return cfg.Path
	default:
		if cfg.InstanceName != "" {
			return fmt.Sprintf("%s:%s@unix(/cloudsql/%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
				cfg.User, cfg.Password, cfg.InstanceName, cfg.Name)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	}
}

// NewOpener returns the Opener for the driver. Duplicate key errors are
// translated to gorm.ErrDuplicatedKey.
func NewOpener(driver string) (Opener, error) {
	var dialect func(dsn string) gorm.Dialector
	switch driver {
	case "", DriverMySQL:
		dialect = gmysql.Open
	case DriverPostgres:
		dialect = postgres.Open
	case DriverSQLite:
		dialect = sqlite.Open
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return func(dsn string) (*gorm.DB, error) {
		return gorm.Open(dialect(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Warn),
		})
	}, nil
}

// ConnectWithRetry calls opener until it succeeds or timeout elapses,
// waiting retryInterval between attempts.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// OpenDB connects with retry and, when cfg.RunMigrations is set, migrates the schema.
func OpenDB(cfg Config) (*gorm.DB, error) {
	opener, err := NewOpener(cfg.Driver)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, opener)
	if err != nil {
		return nil, err
	}
	slog.Info("DB connection successful", "driver", driverName(cfg.Driver))

	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates the accounts table and its indexes.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}
	if err := db.AutoMigrate(&entity.Account{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func driverName(driver string) string {
	if driver == "" {
		return DriverMySQL
	}
	return driver
}
