package database

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds database configuration
type Config struct {
	DatabasePath    string        `json:"database_path" validate:"required"`
	MaxConnections  int           `json:"max_connections" validate:"gt=0"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" validate:"gt=0"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" validate:"gt=0"`
	// BusyTimeout is how long SQLite waits on a locked database before
	// returning SQLITE_BUSY
	BusyTimeout time.Duration `json:"busy_timeout" validate:"gte=0"`
}

// DefaultConfig returns production-ready database configuration.
// SQLite is comfortable with ~10 pooled connections for WAL readers.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    "./data/gatherly.db",
		MaxConnections:  10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 10,
		BusyTimeout:     5 * time.Second,
	}
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	return nil
}

// DSN builds the go-sqlite3 connection string. Pragmas are passed as DSN
// parameters so every pooled connection gets them, not just the first one.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on&_synchronous=NORMAL",
		c.DatabasePath, c.BusyTimeout.Milliseconds(),
	)
}
