// Package sqlite implements the repository interfaces over an embedded
// SQLite database (modernc.org/sqlite, pure Go, no CGo).
//
// Beyond plain CRUD this store carries two responsibilities the rest of the
// system leans on:
//
//   - It is the final quota authority. Document inserts count the owner's
//     rows inside the same transaction and reject with the quota sentinel
//     when a race would push a free account past its ceiling, whatever any
//     session's cached snapshot believed.
//   - It emits change notifications. After every committed mutation it
//     publishes {table, kind} to the change feed, which is how other
//     sessions' views converge.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/sakif/docuflow/internal/changefeed"
)

// Table names, shared with the change feed so subscribers and publishers
// can never drift apart on spelling.
const (
	TableDocuments  = "documents"
	TableProfiles   = "profiles"
	TableBlogs      = "blogs"
	TableAdminUsers = "admin_users"
)

// DB wraps the connection pool and the feed mutations are announced on.
type DB struct {
	conn *sql.DB
	feed *changefeed.Feed
}

// New opens (or creates) the database at dbPath, applies pragmas and
// migrations, and wires the change feed. Pass ":memory:" for tests. The
// feed may be nil, in which case mutations are silent.
func New(dbPath string, feed *changefeed.Feed) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads during writes; foreign keys are off by
	// default in SQLite and we rely on them (documents → profiles).
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, feed: feed}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent, so it is safe on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id                 TEXT PRIMARY KEY,
			email              TEXT NOT NULL UNIQUE,
			full_name          TEXT NOT NULL DEFAULT '',
			subscription_tier  TEXT NOT NULL DEFAULT 'free',
			subscription_start DATETIME,
			subscription_end   DATETIME,
			document_count     INTEGER NOT NULL DEFAULT 0,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES profiles(id),
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
		CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS blogs (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			excerpt    TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			published  INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_blogs_created_at ON blogs(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating blogs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS admin_users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			full_name     TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating admin_users table: %w", err)
	}

	return nil
}

// publish announces a committed mutation on the change feed. Events carry
// no row data: subscribers reload through the authoritative query.
func (db *DB) publish(table string, kind changefeed.EventKind) {
	if db.feed == nil {
		return
	}
	db.feed.Publish(table, kind)
}
