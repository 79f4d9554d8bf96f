package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed *.sql
var migrationFS embed.FS

// mu serializes migration runs within the process so concurrent first opens
// of the same database do not race on schema_migrations.
var mu sync.Mutex

// RunMigrations applies all pending migrations using conn and returns the
// resulting schema version. conn is closed when RunMigrations returns, so
// callers should hand it a dedicated connection.
func RunMigrations(conn *sql.DB) (uint, error) {
	mu.Lock()
	defer mu.Unlock()

	driver, err := sqlite3.WithInstance(conn, &sqlite3.Config{})
	if err != nil {
		conn.Close()
		return 0, fmt.Errorf("failed to create sqlite3 migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, ".")
	if err != nil {
		driver.Close()
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		source.Close()
		driver.Close()
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("database schema is dirty at version %d", version)
	}

	log.Debug().Uint("version", version).Msg("Database schema is up to date")
	return version, nil
}
