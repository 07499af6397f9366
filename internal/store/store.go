// Package store implements the Event Store (spec §4.4): SQLite schema,
// additive migrations, and typed queries over cameras, ROI configuration,
// detection events, and settings. Grounded on
// marcopennelli-orbo/internal/database/database.go.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// TimestampLayout produces lexicographically-sortable UTC timestamps
// (spec §4.4: "String lexicographic order equals temporal order").
const TimestampLayout = "2006-01-02 15:04:05"

// Store owns the single SQLite connection pool for the process. Writes are
// serialized through writeMu (spec §4.4: "single writer per table-op
// guarded by a process-wide lock"); reads use the pool directly.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open opens (creating if absent) the SQLite database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign_keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates missing tables and additively heals schema drift. Never
// drops or renames a column (spec §4.4).
func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cameras (
			camera_id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			fps INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS camera_config (
			camera_id TEXT PRIMARY KEY,
			roi_x1 REAL,
			roi_y1 REAL,
			roi_x2 REAL,
			roi_y2 REAL,
			entry_direction TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS detection_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			event_type TEXT NOT NULL,
			direction TEXT,
			confidence REAL,
			details TEXT,
			camera_id TEXT,
			snapshot_path TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detection_events_camera_time
			ON detection_events(camera_id, timestamp)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			type TEXT NOT NULL,
			data TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS system_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			level TEXT NOT NULL,
			module TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}

	// Additive column healing for detection_events, in case an older schema
	// predates camera_id/snapshot_path (spec §4.4 migration discipline).
	for _, col := range []string{
		"ALTER TABLE detection_events ADD COLUMN camera_id TEXT",
		"ALTER TABLE detection_events ADD COLUMN snapshot_path TEXT",
	} {
		if _, err := s.db.Exec(col); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// FormatTimestamp renders t per the Event Store's lexicographic UTC format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
