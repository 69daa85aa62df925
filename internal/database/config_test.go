package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDatabaseType(t *testing.T) {
	assert.Equal(t, DatabaseTypeSQLite, ParseDatabaseType(""))
	assert.Equal(t, DatabaseTypeSQLite, ParseDatabaseType("SQLite3"))
	assert.Equal(t, DatabaseTypePostgreSQL, ParseDatabaseType("postgres"))
	assert.Equal(t, DatabaseTypeMySQL, ParseDatabaseType("mysql"))
	assert.Equal(t, DatabaseTypeMariaDB, ParseDatabaseType(" mariadb "))
	assert.Equal(t, DatabaseType("oracle"), ParseDatabaseType("oracle"))
}

func TestDatabaseConfig_WithDefaults(t *testing.T) {
	c := DatabaseConfig{}.withDefaults()
	assert.Equal(t, DatabaseTypeSQLite, c.Type)
	assert.Equal(t, DefaultDatabasePath, c.Path)

	pg := DatabaseConfig{Type: DatabaseTypePostgreSQL, Host: "db"}.withDefaults()
	assert.Equal(t, 5432, pg.Port)
	assert.Equal(t, "notion_book_sync", pg.Database)
	assert.Equal(t, 10, pg.MaxOpenConns)

	my := DatabaseConfig{Type: DatabaseTypeMariaDB, Port: 3307}.withDefaults()
	assert.Equal(t, 3307, my.Port)
}

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  DatabaseConfig
		wantErr string
	}{
		{"sqlite ok", DatabaseConfig{Type: DatabaseTypeSQLite, Path: "x.db"}, ""},
		{"sqlite without path", DatabaseConfig{Type: DatabaseTypeSQLite}, "path is required"},
		{"postgres without host", DatabaseConfig{Type: DatabaseTypePostgreSQL, Database: "d", Port: 5432}, "host is required"},
		{"mysql without port", DatabaseConfig{Type: DatabaseTypeMySQL, Host: "h", Database: "d"}, "port is required"},
		{"unknown type", DatabaseConfig{Type: "oracle"}, "unsupported database type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	pg := DatabaseConfig{Type: DatabaseTypePostgreSQL, Host: "db", Port: 5432, Database: "books", SSLMode: "disable", Username: "u", Password: "p"}
	assert.Equal(t, "host=db port=5432 dbname=books sslmode=disable user=u password=p", pg.GetDSN())

	my := DatabaseConfig{Type: DatabaseTypeMySQL, Host: "db", Port: 3306, Database: "books", Username: "u", Password: "p"}
	assert.Equal(t, "u:p@tcp(db:3306)/books?charset=utf8mb4&parseTime=True&loc=Local", my.GetDSN())

	lite := DatabaseConfig{Type: DatabaseTypeSQLite, Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", lite.GetDSN())
}
