package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ROIConfig is the durable row for the ROIConfig entity (spec §3). At most
// one row per camera_id.
type ROIConfig struct {
	CameraID       string
	X1, Y1, X2, Y2 float64
	EntryDirection string
}

// UpsertROI writes or replaces a camera's ROIConfig. Callers are responsible
// for validating entry_direction before calling this (spec §7:
// "Configuration error... write rejected with validation error").
func (s *Store) UpsertROI(r ROIConfig) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO camera_config (camera_id, roi_x1, roi_y1, roi_x2, roi_y2, entry_direction)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(camera_id) DO UPDATE SET
			roi_x1=excluded.roi_x1, roi_y1=excluded.roi_y1,
			roi_x2=excluded.roi_x2, roi_y2=excluded.roi_y2,
			entry_direction=excluded.entry_direction
	`, r.CameraID, r.X1, r.Y1, r.X2, r.Y2, r.EntryDirection)
	if err != nil {
		return fmt.Errorf("store: upsert roi %s: %w", r.CameraID, err)
	}
	return nil
}

// GetROI returns a camera's ROIConfig, or ErrNotFound if absent (spec §3:
// "Absence means entire frame, no direction classification").
func (s *Store) GetROI(cameraID string) (*ROIConfig, error) {
	row := s.db.QueryRow(`SELECT camera_id, roi_x1, roi_y1, roi_x2, roi_y2, entry_direction
		FROM camera_config WHERE camera_id = ?`, cameraID)

	var r ROIConfig
	err := row.Scan(&r.CameraID, &r.X1, &r.Y1, &r.X2, &r.Y2, &r.EntryDirection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get roi %s: %w", cameraID, err)
	}
	return &r, nil
}

// ClearROI deletes a camera's ROIConfig (spec §6.2 POST .../roi/clear).
func (s *Store) ClearROI(cameraID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(`DELETE FROM camera_config WHERE camera_id = ?`, cameraID)
	if err != nil {
		return fmt.Errorf("store: clear roi %s: %w", cameraID, err)
	}
	return nil
}
