// Package snapshot implements the Snapshot Store (spec §4.5): a
// camera-partitioned filesystem tree of JPEG stills plus a FIFO retention
// sweeper. Grounded in shape on
// marcopennelli-orbo/internal/detector/motion.go's CleanupOldFrames,
// generalized from age-based to count-capped oldest-first deletion.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"flowguard/internal/logging"
)

// Store owns the snapshots root directory tree. Creation of individual
// files is the Tracking worker's responsibility (spec §4.5); the Store only
// owns retention.
type Store struct {
	root string
	log  *logging.Logger
}

// New returns a Store rooted at root, creating it if necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create root %s: %w", root, err)
	}
	return &Store{root: root, log: logging.New("snapshot")}, nil
}

// Root returns the snapshots root directory.
func (s *Store) Root() string { return s.root }

// CameraDir returns (and creates) the per-camera subdirectory.
func (s *Store) CameraDir(cameraID string) (string, error) {
	dir := filepath.Join(s.root, cameraID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create camera dir %s: %w", cameraID, err)
	}
	return dir, nil
}

// Path builds the canonical filename for a snapshot captured at t (spec §6:
// "snapshots/<camera_id>/snapshot_YYYYMMDD_HHMMSS_ffffff.jpg").
func (s *Store) Path(cameraID string, t time.Time) string {
	u := t.UTC()
	name := fmt.Sprintf("snapshot_%s_%06d.jpg", u.Format("20060102_150405"), u.Nanosecond()/1000)
	return filepath.Join(s.root, cameraID, name)
}

// Write persists data at the canonical path for cameraID/t, returning the
// path written.
func (s *Store) Write(cameraID string, t time.Time, data []byte) (string, error) {
	dir, err := s.CameraDir(cameraID)
	if err != nil {
		return "", err
	}
	path := s.Path(cameraID, t)
	_ = dir
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return path, nil
}

// IsSafePath reports whether candidate resolves to a location inside
// camera's directory within the snapshots root — used by the HTTP
// snapshot-image endpoint to reject path traversal (spec §6: "Path
// components outside this tree must be rejected... with 403").
func (s *Store) IsSafePath(cameraID, file string) (string, bool) {
	dir, err := filepath.Abs(filepath.Join(s.root, cameraID))
	if err != nil {
		return "", false
	}
	candidate, err := filepath.Abs(filepath.Join(dir, file))
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(dir, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return candidate, true
}

// ListRecent returns up to limit most-recent snapshot file names for a
// camera (spec §6: GET /api/snapshots/{camera_id}).
func (s *Store) ListRecent(cameraID string, limit int) ([]string, error) {
	dir := filepath.Join(s.root, cameraID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: list %s: %w", cameraID, err)
	}

	type fileInfo struct {
		name  string
		mtime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jpg" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), mtime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}
