package shared

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// NewDatabase opens a connection using driver ("sqlite3" or "pgx") and source.
// For SQLite the source can be ":memory:" and foreign key enforcement is switched on.
func NewDatabase(driver, source string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// The pragma is per connection; callers keep SQLite pools at a single connection.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return db, nil
}

// OpenDatabase opens the database described by cfg and applies its pool settings.
func OpenDatabase(cfg DatabaseConfig) (*sqlx.DB, error) {
	db, err := NewDatabase(cfg.Driver, cfg.Source())
	if err != nil {
		return nil, err
	}
	if cfg.Driver != DriverSQLite {
		ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
func ConfigureDatabase(db *sqlx.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
