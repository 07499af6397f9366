package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// Camera is the durable row for the Camera entity (spec §3).
type Camera struct {
	ID        string
	Source    string
	Name      string
	Width     int
	Height    int
	FPS       int
	Enabled   bool
	CreatedAt string
	UpdatedAt string
}

// UpsertCamera inserts or updates a camera row. Matches spec §4.2's
// "if id exists... install new" semantics at the storage layer; the
// Registry is responsible for the higher-level add/replace decision.
func (s *Store) UpsertCamera(c Camera) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := FormatTimestamp(nowUTC())
	_, err := s.db.Exec(`
		INSERT INTO cameras (camera_id, source, name, width, height, fps, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(camera_id) DO UPDATE SET
			source=excluded.source, name=excluded.name, width=excluded.width,
			height=excluded.height, fps=excluded.fps, enabled=excluded.enabled,
			updated_at=excluded.updated_at
	`, c.ID, c.Source, c.Name, c.Width, c.Height, c.FPS, boolToInt(c.Enabled), now, now)
	if err != nil {
		return fmt.Errorf("store: upsert camera %s: %w", c.ID, err)
	}
	return nil
}

// GetCamera returns a camera by ID.
func (s *Store) GetCamera(id string) (*Camera, error) {
	row := s.db.QueryRow(`SELECT camera_id, source, name, width, height, fps, enabled, created_at, updated_at
		FROM cameras WHERE camera_id = ?`, id)
	return scanCamera(row)
}

// ListCameras returns all cameras ordered by created_at.
func (s *Store) ListCameras() ([]Camera, error) {
	rows, err := s.db.Query(`SELECT camera_id, source, name, width, height, fps, enabled, created_at, updated_at
		FROM cameras ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list cameras: %w", err)
	}
	defer rows.Close()

	var out []Camera
	for rows.Next() {
		var c Camera
		var enabled int
		if err := rows.Scan(&c.ID, &c.Source, &c.Name, &c.Width, &c.Height, &c.FPS, &enabled, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan camera: %w", err)
		}
		c.Enabled = enabled != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCamera removes a camera row (and its ROI config, if any).
func (s *Store) DeleteCamera(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM camera_config WHERE camera_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete camera_config %s: %w", id, err)
	}
	if _, err := s.db.Exec(`DELETE FROM cameras WHERE camera_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete camera %s: %w", id, err)
	}
	return nil
}

// SetCameraEnabled flips the enabled flag for a camera.
func (s *Store) SetCameraEnabled(id string, enabled bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`UPDATE cameras SET enabled = ?, updated_at = ? WHERE camera_id = ?`,
		boolToInt(enabled), FormatTimestamp(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("store: set camera enabled %s: %w", id, err)
	}
	return nil
}

func scanCamera(row *sql.Row) (*Camera, error) {
	var c Camera
	var enabled int
	err := row.Scan(&c.ID, &c.Source, &c.Name, &c.Width, &c.Height, &c.FPS, &enabled, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan camera: %w", err)
	}
	c.Enabled = enabled != 0
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
