package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Setting is the durable key/value row described in spec §3.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt string
}

// SetSetting writes a key/value pair, advancing updated_at (spec §8:
// "Settings set then get returns the written value; updated_at advances").
func (s *Store) SetSetting(key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
	`, key, value, FormatTimestamp(nowUTC()))
	if err != nil {
		return fmt.Errorf("store: set setting %s: %w", key, err)
	}
	return nil
}

// GetSetting reads a setting by key.
func (s *Store) GetSetting(key string) (*Setting, error) {
	row := s.db.QueryRow(`SELECT key, value, updated_at FROM settings WHERE key = ?`, key)
	var st Setting
	err := row.Scan(&st.Key, &st.Value, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get setting %s: %w", key, err)
	}
	return &st, nil
}

// ListSettings returns all settings.
func (s *Store) ListSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("store: list settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan setting: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteSetting removes a setting by key.
func (s *Store) DeleteSetting(key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete setting %s: %w", key, err)
	}
	return nil
}

// LogSystemEvent appends a row to system_logs — used by components that
// want a durable, queryable log trail distinct from the file/console log
// sink (spec §4.4 table set).
func (s *Store) LogSystemEvent(level, module, message string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO system_logs (timestamp, level, module, message) VALUES (?, ?, ?, ?)
	`, FormatTimestamp(nowUTC()), level, module, message)
	if err != nil {
		return fmt.Errorf("store: log system event: %w", err)
	}
	return nil
}

// WriteGenericEvent appends a row to the free-form `events` table (spec
// §4.4: `events(id, timestamp, type, data)`), distinct from the Tracking
// Pipeline's typed DetectionEvent rows; the timestamp is the column's
// insert-time default.
func (s *Store) WriteGenericEvent(eventType, jsonData string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`INSERT INTO events (type, data) VALUES (?, ?)`, eventType, jsonData)
	if err != nil {
		return fmt.Errorf("store: write generic event: %w", err)
	}
	return nil
}
