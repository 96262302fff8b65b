package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"woordjes/internal/log"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Options selects and locates the database.
type Options struct {
	Dialect     Dialect
	SQLitePath  string
	DatabaseURL string
}

// Repository is the single persistence gateway. Queries are written with
// '?' placeholders and rebound for the active driver.
type Repository struct {
	db      *sqlx.DB
	dialect Dialect
	schema  SchemaVersion
	logger  *log.Logger
	now     func() time.Time
}

// Open connects, migrates and returns a ready repository.
func Open(ctx context.Context, opts Options, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStorage)

	var dsn, migrateDSN string
	switch opts.Dialect {
	case DialectPostgres:
		if opts.DatabaseURL == "" {
			return nil, errors.New("postgres backend requires a database URL")
		}
		dsn, migrateDSN = opts.DatabaseURL, opts.DatabaseURL
	case DialectSQLite, "":
		opts.Dialect = DialectSQLite
		if err := os.MkdirAll(filepath.Dir(opts.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = opts.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
		migrateDSN = opts.SQLitePath
	default:
		return nil, fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}

	db, err := sqlx.Open(opts.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Dialect, err)
	}
	if opts.Dialect == DialectSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := RunMigrations(opts.Dialect, migrateDSN)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("Database ready", "dialect", string(opts.Dialect), "schema_version", schema.String())

	return &Repository{
		db:      db,
		dialect: opts.Dialect,
		schema:  schema,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

// Schema is the migration version found when the repository was opened.
func (r *Repository) Schema() SchemaVersion { return r.schema }

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) q(query string) string {
	return r.db.Rebind(query)
}

// ts normalises timestamps so SQLite's text comparison matches time order.
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, liteErr)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrNotFound, liteErr)
		}
	}
	return err
}
