package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite"

	"content-rag/internal/config"
)

func NewDB(sqldb *sql.DB, d schema.Dialect, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, d)
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the configured database. "pg" uses bun's pgdriver,
// "postgres" uses lib/pq, "sqlite" uses the pure-Go modernc driver.
func ConnectDB(cfg *config.DatabaseConfig) (*bun.DB, error) {
	switch cfg.Driver {
	case config.DriverPG:
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
		return NewDB(sqldb, pgdialect.New(), cfg.Debug), nil

	case config.DriverPQ:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return NewDB(sqldb, pgdialect.New(), cfg.Debug), nil

	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return NewDB(sqldb, sqlitedialect.New(), cfg.Debug), nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Open connects, pings and migrates the configured database.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("driver", cfg.Driver).Msg("Database ready")
	return s, nil
}

// OpenMemory creates a migrated in-memory SQLite store (useful for testing).
func OpenMemory() (*Store, error) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	sqldb.SetMaxOpenConns(1)

	s := NewStore(NewDB(sqldb, sqlitedialect.New(), false))
	if err := s.Migrate(context.Background()); err != nil {
		sqldb.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the content tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := pgSchema
	if s.db.Dialect().Name() == dialect.SQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}
	return nil
}

// DropTables removes every content table.
func (s *Store) DropTables(ctx context.Context) error {
	for _, table := range tableNames {
		if _, err := s.db.NewDropTable().Table(table).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return nil
}

var tableNames = []string{"notes", "audio", "videos", "past_papers"}

// Ids are never reused after deletion: BIGSERIAL sequences on Postgres,
// AUTOINCREMENT on SQLite.
var pgSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS notes (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding vector NOT NULL,
    category TEXT,
    exam TEXT,
    paper TEXT,
    subject TEXT,
    topics TEXT,
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS audio (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding vector NOT NULL,
    audio BYTEA NOT NULL,
    audio_type TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS videos (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding vector NOT NULL,
    source_url TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS past_papers (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding vector NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding TEXT NOT NULL,
    category TEXT,
    exam TEXT,
    paper TEXT,
    subject TEXT,
    topics TEXT,
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS audio (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding TEXT NOT NULL,
    audio BLOB NOT NULL,
    audio_type TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS videos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding TEXT NOT NULL,
    source_url TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS past_papers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`,
}
