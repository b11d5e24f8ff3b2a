package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"passbook/internal/platform/config"
	"passbook/migrations"
)

// Pool wraps a *sql.DB with the dialect it speaks and health checking.
type Pool struct {
	db      *sql.DB
	dialect migrations.Dialect
}

// Open connects to PostgreSQL when cfg.URL is set and to the SQLite file at
// cfg.SQLitePath otherwise. Migrations are applied before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	var (
		p   *Pool
		err error
	)
	if cfg.URL != "" {
		p, err = OpenPostgres(ctx, cfg)
	} else {
		p, err = OpenSQLite(ctx, cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}

	if err := p.Migrate(ctx); err != nil {
		p.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, err
	}
	return p, nil
}

// OpenPostgres creates a PostgreSQL connection pool over pgx's database/sql driver.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db, dialect: migrations.Postgres}, nil
}

// sqliteParams are applied by the driver on every new connection, so a
// recycled connection keeps foreign keys and the busy timeout.
var sqliteParams = url.Values{
	"_foreign_keys": {"on"},
	"_busy_timeout": {"5000"},
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
}

// sqliteDSN appends the connection parameters to a database file path.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqliteParams.Encode()
}

// OpenSQLite opens (creating if needed) a SQLite database file.
// SQLite allows one writer, so the pool is pinned to a single connection and
// runs in WAL mode with a busy timeout and foreign keys enforced.
func OpenSQLite(ctx context.Context, path string) (*Pool, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path not configured")
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Pool{db: db, dialect: migrations.SQLite}, nil
}

// Migrate applies the embedded schema for the pool's dialect.
func (p *Pool) Migrate(ctx context.Context) error {
	return migrations.Apply(ctx, p.db, p.dialect)
}

// DB returns the underlying *sql.DB for query operations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Dialect reports which SQL flavour the pool speaks.
func (p *Pool) Dialect() migrations.Dialect {
	return p.dialect
}

// Health checks if the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
