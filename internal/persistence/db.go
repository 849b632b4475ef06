// Package persistence stores save slots in SQLite. Objects and actors go
// in tables; the motion, task and band layers are stored as the binary
// chunks their own archive code writes.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNoSave is returned when a save slot does not exist.
var ErrNoSave = errors.New("no such save")

// DB wraps a SQLite connection holding save slots.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; sqlite serializes anyway and in-memory databases are
	// per connection.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tick INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		size INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (save_id, tag)
	);

	CREATE TABLE IF NOT EXISTS objects (
		save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind INTEGER NOT NULL,
		parent INTEGER NOT NULL,
		u INTEGER NOT NULL,
		v INTEGER NOT NULL,
		z INTEGER NOT NULL,
		height INTEGER NOT NULL,
		cross_section INTEGER NOT NULL,
		flags INTEGER NOT NULL,
		damage INTEGER NOT NULL,
		max_range INTEGER NOT NULL,
		two_handed INTEGER NOT NULL,
		spell INTEGER NOT NULL,
		skill INTEGER NOT NULL,
		worn INTEGER NOT NULL,
		actor_json TEXT,
		PRIMARY KEY (save_id, id)
	);

	CREATE TABLE IF NOT EXISTS threads (
		save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		PRIMARY KEY (save_id, id)
	);

	CREATE TABLE IF NOT EXISTS aggressions (
		save_id TEXT NOT NULL REFERENCES saves(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		attacker INTEGER NOT NULL,
		target INTEGER NOT NULL,
		PRIMARY KEY (save_id, seq)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_created ON saves(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// LastTick returns the tick of the most recent save, if any.
func (db *DB) LastTick() (uint64, bool) {
	v, err := db.GetMeta("last_tick")
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	return n, err == nil
}

// HasWorldState reports whether any save exists.
func (db *DB) HasWorldState() bool {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM saves"); err != nil {
		slog.Warn("count saves", "error", err)
		return false
	}
	return n > 0
}

func noSave(id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save %s: %w", id, ErrNoSave)
	}
	return fmt.Errorf("save %s: %w", id, err)
}
