package database

import (
	"fmt"
	"strings"
)

// DatabaseType represents the supported database types
type DatabaseType string

const (
	DatabaseTypeSQLite     DatabaseType = "sqlite"
	DatabaseTypePostgreSQL DatabaseType = "postgresql"
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypeMariaDB    DatabaseType = "mariadb"
)

// ParseDatabaseType maps a configured name to a DatabaseType. Unknown names
// are returned as-is so Validate can reject them.
func ParseDatabaseType(s string) DatabaseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DatabaseTypeSQLite
	case "postgres", "postgresql":
		return DatabaseTypePostgreSQL
	case "mysql":
		return DatabaseTypeMySQL
	case "mariadb":
		return DatabaseTypeMariaDB
	default:
		return DatabaseType(s)
	}
}

// DatabaseConfig holds the configuration for the history database
type DatabaseConfig struct {
	Type     DatabaseType
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	// Path is the SQLite file. ":memory:" keeps the history in memory.
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // minutes
}

// withDefaults fills unset ports, pool sizes and paths
func (c DatabaseConfig) withDefaults() DatabaseConfig {
	if c.Type == "" {
		c.Type = DatabaseTypeSQLite
	}
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.Path == "" {
			c.Path = DefaultDatabasePath
		}
	case DatabaseTypePostgreSQL:
		if c.Port == 0 {
			c.Port = 5432
		}
	case DatabaseTypeMySQL, DatabaseTypeMariaDB:
		if c.Port == 0 {
			c.Port = 3306
		}
	}
	if c.Type != DatabaseTypeSQLite {
		if c.Database == "" {
			c.Database = "notion_book_sync"
		}
		if c.SSLMode == "" {
			c.SSLMode = "prefer"
		}
		if c.MaxOpenConns == 0 {
			c.MaxOpenConns = 10
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = 2
		}
		if c.ConnMaxLifetime == 0 {
			c.ConnMaxLifetime = 60
		}
	}
	return c
}

// Validate checks if the database configuration is valid
func (c *DatabaseConfig) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite:
		if c.Path == "" {
			return fmt.Errorf("SQLite database path is required")
		}
	case DatabaseTypePostgreSQL, DatabaseTypeMySQL, DatabaseTypeMariaDB:
		if c.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Type)
		}
		if c.Database == "" {
			return fmt.Errorf("database name is required for %s", c.Type)
		}
		if c.Port <= 0 {
			return fmt.Errorf("valid database port is required for %s", c.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// GetDSN returns the data source name for the database connection
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case DatabaseTypeSQLite:
		return c.Path
	case DatabaseTypePostgreSQL:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", c.Host, c.Port, c.Database, c.SSLMode)
		if c.Username != "" {
			dsn += " user=" + c.Username
		}
		if c.Password != "" {
			dsn += " password=" + c.Password
		}
		return dsn
	case DatabaseTypeMySQL, DatabaseTypeMariaDB:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database)
	default:
		return ""
	}
}
