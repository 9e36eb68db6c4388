// Package postgres owns the relational datastore handle used by the scan
// cache and feedback repositories. The handle is constructed once at startup
// and passed into each component; there is no package-level singleton.
package postgres

import (
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec/postgres/models"
)

// Config holds the connection parameters for the scan datastore.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the gorm/pgx connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Database, c.Port, sslMode)
}

// DB is an explicitly owned, injectable database handle. Reconnect replaces
// the underlying connection after a fault; callers holding a *DB keep working
// through it.
type DB struct {
	mu   sync.RWMutex
	cfg  Config
	gorm *gorm.DB
}

// New opens a connection to Postgres and migrates the scan schema.
func New(cfg Config) (*DB, error) {
	g, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrate(g); err != nil {
		return nil, err
	}
	return &DB{cfg: cfg, gorm: g}, nil
}

// NewWithDialector opens a handle on an arbitrary gorm dialector. Used by
// tests to run the repositories against an in-memory sqlite database.
func NewWithDialector(dialector gorm.Dialector) (*DB, error) {
	g, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate(g); err != nil {
		return nil, err
	}
	return &DB{gorm: g}, nil
}

func migrate(g *gorm.DB) error {
	if err := g.AutoMigrate(
		&models.ScanCache{},
		&models.ScanFeedback{},
	); err != nil {
		return fmt.Errorf("migrate scan schema: %w", err)
	}
	return nil
}

// Gorm returns the current underlying gorm handle. Safe for concurrent use;
// gorm sessions created from it are independent.
func (d *DB) Gorm() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gorm
}

// Reconnect re-establishes the Postgres connection using the stored config.
// It replaces implicit reset-on-error global reassignment with an explicit
// operation the owner invokes.
func (d *DB) Reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg == (Config{}) {
		return fmt.Errorf("reconnect: no connection config stored")
	}
	g, err := gorm.Open(postgres.Open(d.cfg.DSN()), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("reconnect to postgres: %w", err)
	}
	if old, err := d.gorm.DB(); err == nil {
		old.Close()
	}
	d.gorm = g
	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
