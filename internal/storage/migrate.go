package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// SchemaVersion is the last applied migration.
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

func (v SchemaVersion) String() string {
	if v.Dirty {
		return fmt.Sprintf("%d (dirty)", v.Version)
	}
	return fmt.Sprint(v.Version)
}

// RunMigrations brings the schema for dialect up to date and reports the
// resulting version. The migrate driver closes the handle it is given, so
// this never shares the repository's pool.
func RunMigrations(dialect Dialect, dsn string) (SchemaVersion, error) {
	conn, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("open migration database: %w", err)
	}
	defer conn.Close()

	m, err := newMigrator(dialect, conn)
	if err != nil {
		return SchemaVersion{}, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{}, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaVersion{Version: version, Dirty: dirty}, nil
}

func newMigrator(dialect Dialect, conn *sql.DB) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	if dialect == DialectPostgres {
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	} else {
		driver, err = sqlite.WithInstance(conn, &sqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("%s migration driver: %w", dialect, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, string(dialect), driver)
}
