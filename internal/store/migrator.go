package store

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"faveswitch/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// Match both up/down files explicitly to avoid "no matching files" during go:embed.
//
//go:embed migrations/*.up.sql migrations/*.down.sql
var migrationsFS embed.FS

// MigrateUp runs all "up" migrations bundled via go:embed. The URL uses the
// modernc-backed "sqlite://" scheme, e.g. sqlite:///var/lib/faveswitch/faveswitch.db.
func MigrateUp(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("migrator: empty database URL")
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrator: iofs init: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("migrator: create: %w", err)
	}
	defer m.Close()

	maxVer, files := listEmbeddedMigrations()
	logging.Info("embedded migrations", "count", len(files), "latest", maxVer)

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrator: up: %w", err)
	}

	if v, d, err := m.Version(); err == nil {
		logging.Info("db migration version", "version", v, "dirty", d)
	}
	return nil
}

var migRe = regexp.MustCompile(`^(\d+)_.+\.(up|down)\.sql$`)

func listEmbeddedMigrations() (int, []string) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return 0, nil
	}
	maxV := 0
	var names []string
	for _, e := range entries {
		name := e.Name()
		if m := migRe.FindStringSubmatch(name); m != nil {
			names = append(names, name)
			if v, err := strconv.Atoi(m[1]); err == nil && v > maxV {
				maxV = v
			}
		}
	}
	return maxV, names
}
