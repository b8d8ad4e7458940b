package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// schemaDDL mirrors the postgres migrations for the embedded backend; the
// sqlite file bootstraps itself on open instead of running a migrator.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    chat_id INTEGER PRIMARY KEY,
    tz TEXT DEFAULT 'Europe/Helsinki',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS watchlist (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id INTEGER NOT NULL,
    label TEXT NOT NULL,
    resolved_name TEXT,
    provider TEXT NOT NULL,
    provider_player_id TEXT,
    expires_on DATE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS u_watchlist_daily
    ON watchlist(chat_id, label, provider, expires_on);

CREATE TABLE IF NOT EXISTS notified (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id INTEGER NOT NULL,
    provider TEXT NOT NULL,
    event_id TEXT NOT NULL,
    event_day DATE NOT NULL,
    sent_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(chat_id, provider, event_id, event_day)
);
`

// Open opens (and bootstraps) the sqlite database. The pool is pinned to a
// single connection: the write path is tiny and SQLITE_BUSY handling stays in
// one place instead of racing connections against each other.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite path=%s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite path=%s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}

	return db, nil
}
