package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"recibos/internal/log"
)

//go:embed migrations/*.sql
var mirrorSchema embed.FS

// migrateMirror brings the mirror schema up to the newest embedded version
// and returns the version it ended at. The caller keeps ownership of db.
func migrateMirror(db *sql.DB, logger *log.Logger) (uint, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("mirror schema driver: %w", err)
	}

	src, err := iofs.New(mirrorSchema, "migrations")
	if err != nil {
		return 0, fmt.Errorf("mirror schema source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("mirror schema migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("Mirror schema already current")
	case err != nil:
		return 0, fmt.Errorf("apply mirror schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read mirror schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("mirror schema version %d is dirty", version)
	}
	logger.Info("Mirror schema ready", "schema_version", version)
	return version, nil
}
