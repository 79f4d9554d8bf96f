package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"reddot-watch/issuefeed/internal/database/migrations"
)

// driverName is go-sqlite3 with a hook for pragmas the DSN cannot carry.
const driverName = "sqlite3_issuefeed"

// connectPragmas run on every new connection.
var connectPragmas = []string{
	"PRAGMA temp_store = MEMORY;",
}

var registerDriver sync.Once

func registerSQLiteDriver() {
	registerDriver.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				for _, pragma := range connectPragmas {
					if _, err := conn.Exec(pragma, nil); err != nil {
						return fmt.Errorf("failed to set %q: %w", pragma, err)
					}
				}
				return nil
			},
		})
		sqlx.BindDriver(driverName, sqlx.QUESTION)
	})
}

// DB represents the database connection
type DB struct {
	*sqlx.DB
}

// NewDB opens the feed database, creating the file and schema when absent.
// Schema creation is idempotent and safe to invoke concurrently.
func NewDB(cfg *Config) (*DB, error) {
	dir := filepath.Dir(cfg.DBPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	registerSQLiteDriver()
	dsn := cfg.DSN()
	log.Info().Str("path", cfg.DBPath).Msg("Opening database")

	migrationConn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	version, err := migrations.RunMigrations(migrationConn)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Uint("schema_version", version).Msg("Database migrations completed successfully")

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	log.Info().Msg("Database connection successful")
	return &DB{db}, nil
}
