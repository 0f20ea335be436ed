// Package config loads the service configuration from defaults, an optional
// YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"account_backend/internal/platform/db"
	"account_backend/internal/platform/logging"
	"account_backend/internal/platform/redis"
)

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	DB           db.Config          `mapstructure:"db"`
	Redis        redis.Config       `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Password     PasswordConfig     `mapstructure:"password"`
	Precondition PreconditionConfig `mapstructure:"precondition"`
	Log          logging.Config     `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// JWTConfig configures token signing.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// PasswordConfig configures password hashing.
type PasswordConfig struct {
	Iterations int `mapstructure:"iterations"`
}

// PreconditionConfig configures If-Unmodified-Since evaluation.
type PreconditionConfig struct {
	Tolerance time.Duration `mapstructure:"tolerance"`
}

// defaults lists every key so AutomaticEnv can override it.
var defaults = map[string]any{
	"server.addr":                 ":8080",
	"server.mode":                 "release",
	"server.cors_origins":         []string{"*"},
	"server.shutdown_timeout":     10 * time.Second,
	"db.driver":                   db.DriverMySQL,
	"db.user":                     "",
	"db.password":                 "",
	"db.name":                     "",
	"db.host":                     "localhost",
	"db.port":                     "3306",
	"db.instance_connection_name": "",
	"db.path":                     "",
	"db.connect_timeout":          60 * time.Second,
	"db.run_migrations":           false,
	"redis.host":                  "",
	"redis.port":                  "6379",
	"redis.password":              "",
	"redis.db":                    0,
	"redis.cache_ttl":             30 * time.Second,
	"jwt.secret":                  "",
	"jwt.ttl":                     24 * time.Hour,
	"password.iterations":         210000,
	"precondition.tolerance":      time.Second,
	"log.level":                   "info",
	"log.format":                  "text",
}

// legacyEnv maps keys to environment variable names that do not follow the
// section_key convention.
var legacyEnv = map[string]string{
	"db.instance_connection_name": "INSTANCE_CONNECTION_NAME",
	"db.run_migrations":           "RUN_MIGRATIONS",
	"server.mode":                 "GIN_MODE",
}

// Load reads the configuration. Keys map to environment variables by
// upper-casing and replacing dots with underscores (db.host -> DB_HOST).
// path names an optional config file; when empty, ./config.yaml is used
// if it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case db.DriverMySQL, db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive, got %s", c.JWT.TTL)
	}
	if c.Precondition.Tolerance < 0 {
		return fmt.Errorf("precondition.tolerance must not be negative, got %s", c.Precondition.Tolerance)
	}
	if c.Password.Iterations <= 0 {
		return fmt.Errorf("password.iterations must be positive, got %d", c.Password.Iterations)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
