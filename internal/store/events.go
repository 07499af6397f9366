package store

import (
	"database/sql"
	"fmt"
	"time"
)

// EventType enumerates detection_events.event_type values (spec §3).
type EventType string

const (
	EventEntry          EventType = "entry"
	EventExit           EventType = "exit"
	EventDetectionStart EventType = "detection_start"
	EventDetectionEnd   EventType = "detection_end"
	EventDirection      EventType = "direction"
)

// DetectionEvent is the durable, immutable row described in spec §3/§4.4.
type DetectionEvent struct {
	ID            int64
	Timestamp     string
	EventType     EventType
	Direction     sql.NullString
	Confidence    sql.NullFloat64
	Details       sql.NullString
	CameraID      sql.NullString
	SnapshotPath  sql.NullString
}

// WriteEvent inserts a new, immutable DetectionEvent row and returns its ID.
func (s *Store) WriteEvent(e DetectionEvent) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if e.Timestamp == "" {
		e.Timestamp = FormatTimestamp(nowUTC())
	}
	res, err := s.db.Exec(`
		INSERT INTO detection_events (timestamp, event_type, direction, confidence, details, camera_id, snapshot_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Timestamp, string(e.EventType), e.Direction, e.Confidence, e.Details, e.CameraID, e.SnapshotPath)
	if err != nil {
		return 0, fmt.Errorf("store: write event: %w", err)
	}
	return res.LastInsertId()
}

// ListEventsFilter filters ListEvents.
type ListEventsFilter struct {
	CameraID string // empty = any
	From, To string // inclusive ISO/lexicographic bounds; empty = unbounded
	Limit    int
	Offset   int
}

// ListEvents returns rows matching the filter, newest first.
func (s *Store) ListEvents(f ListEventsFilter) ([]DetectionEvent, error) {
	q := `SELECT id, timestamp, event_type, direction, confidence, details, camera_id, snapshot_path
		FROM detection_events WHERE 1=1`
	var args []interface{}

	if f.CameraID != "" {
		q += " AND camera_id = ?"
		args = append(args, f.CameraID)
	}
	if f.From != "" {
		q += " AND timestamp >= ?"
		args = append(args, f.From)
	}
	if f.To != "" {
		q += " AND timestamp <= ?"
		args = append(args, f.To)
	}
	q += " ORDER BY timestamp DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var out []DetectionEvent
	for rows.Next() {
		var e DetectionEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Direction, &e.Confidence, &e.Details, &e.CameraID, &e.SnapshotPath); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// HourlyBucket is one row of the hourly-metrics query contract (spec §4.4).
type HourlyBucket struct {
	Hour            string
	DetectionCount  int
	LeftToRight     int
	RightToLeft     int
	Unknown         int
}

// HourlyMetrics implements spec §4.4's "hourly-metrics query contract":
// rows where event_type='detection_end' and timestamp >= now-hours, grouped
// by strftime('%Y-%m-%d %H:00', timestamp), optionally filtered by camera.
func (s *Store) HourlyMetrics(hours int, cameraID string) (map[string]HourlyBucket, error) {
	since := FormatTimestamp(nowUTC().Add(-time.Duration(hours) * time.Hour))

	q := `SELECT strftime('%Y-%m-%d %H:00', timestamp) AS hour, direction, COUNT(*)
		FROM detection_events
		WHERE event_type = 'detection_end' AND timestamp >= ?`
	args := []interface{}{since}
	if cameraID != "" {
		q += " AND camera_id = ?"
		args = append(args, cameraID)
	}
	q += " GROUP BY hour, direction"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: hourly metrics: %w", err)
	}
	defer rows.Close()

	out := make(map[string]HourlyBucket)
	for rows.Next() {
		var hour string
		var direction sql.NullString
		var count int
		if err := rows.Scan(&hour, &direction, &count); err != nil {
			return nil, fmt.Errorf("store: scan hourly metrics: %w", err)
		}
		b := out[hour]
		b.Hour = hour
		b.DetectionCount += count
		switch direction.String {
		case "entry", "left_to_right":
			b.LeftToRight += count
		case "exit", "right_to_left":
			b.RightToLeft += count
		default:
			b.Unknown += count
		}
		out[hour] = b
	}
	return out, rows.Err()
}

// DirectionCounts implements spec §4.4's "direction-count query contract":
// counts of detection_events rows per direction value where
// event_type='detection_end' and timestamp >= now-days.
func (s *Store) DirectionCounts(days int, cameraID string) (map[string]int, error) {
	since := FormatTimestamp(nowUTC().AddDate(0, 0, -days))

	q := `SELECT direction, COUNT(*) FROM detection_events
		WHERE event_type = 'detection_end' AND timestamp >= ?`
	args := []interface{}{since}
	if cameraID != "" {
		q += " AND camera_id = ?"
		args = append(args, cameraID)
	}
	q += " GROUP BY direction"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: direction counts: %w", err)
	}
	defer rows.Close()

	out := map[string]int{"left_to_right": 0, "right_to_left": 0, "unknown": 0}
	for rows.Next() {
		var direction sql.NullString
		var count int
		if err := rows.Scan(&direction, &count); err != nil {
			return nil, fmt.Errorf("store: scan direction counts: %w", err)
		}
		key := direction.String
		if key == "" {
			key = "unknown"
		}
		out[key] += count
	}
	return out, rows.Err()
}

// EntryExitHourly returns hour-bucket -> count of entry+exit rows for
// cameraID over the trailing window, used by the Metrics Aggregator's
// hourly time series (spec §4.6, distinct from the Event Store's own
// detection_end-based HourlyMetrics contract above).
func (s *Store) EntryExitHourly(cameraID string, hours int) (map[string]int, error) {
	since := FormatTimestamp(nowUTC().Add(-time.Duration(hours) * time.Hour))

	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m-%d %H:00', timestamp) AS hour, COUNT(*)
		FROM detection_events
		WHERE camera_id = ? AND event_type IN ('entry','exit') AND timestamp >= ?
		GROUP BY hour
	`, cameraID, since)
	if err != nil {
		return nil, fmt.Errorf("store: entry/exit hourly: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var hour string
		var count int
		if err := rows.Scan(&hour, &count); err != nil {
			return nil, fmt.Errorf("store: scan entry/exit hourly: %w", err)
		}
		out[hour] = count
	}
	return out, rows.Err()
}

// CountSince returns the number of detection_events rows for a camera with
// event_type in (entry, exit) at or after since (used by the Metrics
// Aggregator's per-camera counts, spec §4.6).
func (s *Store) CountSince(cameraID string, since time.Time) (int, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*) FROM detection_events
		WHERE camera_id = ? AND event_type IN ('entry','exit') AND timestamp >= ?
	`, cameraID, FormatTimestamp(since))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count since: %w", err)
	}
	return n, nil
}
