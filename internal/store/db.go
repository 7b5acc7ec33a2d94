package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialects supported by NewDB.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// DB wraps sql.DB for Postgres (pgx) or SQLite (go-sqlite3).
type DB struct {
	Client  *sql.DB
	Dialect string
}

// NewDB opens the database named by url, pings it and creates the schema.
// postgres:// and postgresql:// URLs use pgx; sqlite://PATH, file: DSNs and
// bare paths use SQLite.
func NewDB(ctx context.Context, url string) (*DB, error) {
	dialect, driver, dsn := parseURL(url)
	if dialect == SQLite {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dialect == SQLite {
		// one connection keeps :memory: databases coherent and serialises writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	d := &DB{Client: db, Dialect: dialect}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func parseURL(url string) (dialect, driver, dsn string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return Postgres, "pgx", url
	case strings.HasPrefix(url, "sqlite3://"):
		return SQLite, "sqlite3", strings.TrimPrefix(url, "sqlite3://")
	case strings.HasPrefix(url, "sqlite://"):
		return SQLite, "sqlite3", strings.TrimPrefix(url, "sqlite://")
	}
	return SQLite, "sqlite3", url
}

func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

func (d *DB) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS user_tokens (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     VARCHAR(16) NOT NULL UNIQUE,
		token       VARCHAR(36) NOT NULL,
		expires_at  DATETIME,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_user_tokens_expires_at ON user_tokens(expires_at);
	`
	if d.Dialect == Postgres {
		schema = `
		CREATE TABLE IF NOT EXISTS user_tokens (
			id          BIGSERIAL PRIMARY KEY,
			user_id     VARCHAR(16) NOT NULL UNIQUE,
			token       VARCHAR(36) NOT NULL,
			expires_at  TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_user_tokens_expires_at ON user_tokens(expires_at);
		`
	}
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}

// Healthy reports whether the database answers a ping.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
