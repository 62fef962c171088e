package db

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationURL rewrites a postgres connection string for the pgx/v5
// migrate driver, which registers under the pgx5 scheme.
func MigrationURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://", "pgx://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func newMigrator(databaseURL, migrationsDir string) (*migrate.Migrate, error) {
	dir, err := filepath.Abs(migrationsDir)
	if err != nil {
		return nil, err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(dir), MigrationURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up migration.
func Migrate(databaseURL, migrationsDir string) error {
	return MigrateSteps(databaseURL, migrationsDir, "up", 0)
}

// MigrateSteps moves the schema up or down. Zero steps means all the way.
func MigrateSteps(databaseURL, migrationsDir, direction string, steps int) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("invalid migration direction %q, must be up or down", direction)
	}
	m, err := newMigrator(databaseURL, migrationsDir)
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
