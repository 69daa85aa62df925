package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

// DefaultDatabasePath is used when no SQLite path is configured
const DefaultDatabasePath = "./data/notion-book-sync.db"

// Database wraps the GORM connection of the history store
type Database struct {
	db     *gorm.DB
	config *DatabaseConfig
	log    *logger.Logger
}

// Open connects to the configured database, falling back to SQLite, and
// migrates the history tables
func Open(config DatabaseConfig, log *logger.Logger) (*Database, error) {
	if log == nil {
		log = logger.Get()
	}
	log = log.Component("database")

	config = config.withDefaults()
	db, used, err := ConnectWithFallback(&config, log)
	if err != nil {
		return nil, err
	}

	d := &Database{db: db, config: used, log: log}
	if err := d.migrate(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

func (d *Database) migrate() error {
	if err := d.db.AutoMigrate(&Run{}, &RecordResult{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// GetDB returns the underlying GORM instance
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// Config returns the configuration actually in use after any fallback
func (d *Database) Config() DatabaseConfig {
	return *d.config
}

// Health checks the database connection
func (d *Database) Health() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
