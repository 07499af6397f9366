package tracking

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flowguard/internal/detector"
	snapshotstore "flowguard/internal/snapshot"
	"flowguard/internal/store"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	dbDir := t.TempDir()
	events, err := store.Open(filepath.Join(dbDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = events.Close() })

	snaps, err := snapshotstore.New(t.TempDir())
	require.NoError(t, err)

	return NewWorker("main", nil, nil, events, snaps, nil, nil, nil, RateConfig{PersonClassID: 0})
}

// Scenario 4: a track with no sustained directional movement still
// commits a direction event on ROI-boundary crossing (spec §4.3 step 5,
// the sole non-movement-vector direction source).
func TestUpdateTrackROIBoundaryFallback(t *testing.T) {
	w := newTestWorker(t)
	entryVec, err := ParseEntryDirection("LTR")
	require.NoError(t, err)

	roi := &Rect{X1: 100, Y1: 100, X2: 540, Y2: 380}
	now := time.Now()

	// Track born outside the ROI, single-frame jump straight inside: no
	// movement-vector history exists yet (fewer than minPositionsForClassify
	// positions), so the boundary flip is the only available signal.
	w.mu.Lock()
	track := newTrack(7, Point{X: 50, Y: 240}, now, "")
	track.inROI = roi.contains(Point{X: 50, Y: 240})
	w.tracks[7] = track
	w.mu.Unlock()

	w.updateTrack(7, Point{X: 200, Y: 240}, now.Add(100*time.Millisecond), roi, entryVec, []byte{0xFF, 0xD8, 0xFF, 0xD9}, detector.BBox{}, 0, 0, 0)

	require.True(t, track.directionLogged)
	require.Equal(t, DirectionEntry, track.direction)

	rows, err := w.events.ListEvents(store.ListEventsFilter{CameraID: "main"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, store.EventEntry, rows[0].EventType)
}

func TestUpdateTrackNoBoundaryFlipNoMovementLeavesUndetermined(t *testing.T) {
	w := newTestWorker(t)
	entryVec, err := ParseEntryDirection("LTR")
	require.NoError(t, err)

	roi := &Rect{X1: 100, Y1: 100, X2: 540, Y2: 380}
	now := time.Now()

	w.mu.Lock()
	track := newTrack(3, Point{X: 300, Y: 240}, now, "")
	track.inROI = roi.contains(Point{X: 300, Y: 240})
	w.tracks[3] = track
	w.mu.Unlock()

	// Stays well inside the ROI, no boundary flip, single additional
	// position: no commit should occur.
	w.updateTrack(3, Point{X: 305, Y: 240}, now.Add(50*time.Millisecond), roi, entryVec, []byte{0xFF, 0xD8, 0xFF, 0xD9}, detector.BBox{}, 0, 0, 0)

	require.False(t, track.directionLogged)

	rows, err := w.events.ListEvents(store.ListEventsFilter{CameraID: "main"})
	require.NoError(t, err)
	require.Len(t, rows, 0)
}
