package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackBirthCapturesSnapshotPathOnce(t *testing.T) {
	now := time.Now()
	tr := newTrack(7, Point{X: 110, Y: 240}, now, "snap/cam/abc.jpg")
	require.Equal(t, "snap/cam/abc.jpg", tr.snapshotPath)
	require.Len(t, tr.positions, 1)
}

func TestTrackObserveBoundsHistoryToCapacity(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, Point{X: 0, Y: 0}, now, "")
	for i := 1; i <= 20; i++ {
		tr.observe(Point{X: float64(i), Y: 0}, now.Add(time.Duration(i)*time.Millisecond))
	}
	require.Len(t, tr.positions, positionHistoryCapacity)
	require.Equal(t, float64(11), tr.positions[0].X, "oldest entries beyond capacity are dropped")
	require.Equal(t, float64(20), tr.positions[len(tr.positions)-1].X)
}

// Scenario 1: entry via LTR, 5 centroids -> movementVector averages k=1
// first/last positions (spec §4.3 step 4, §8 scenario 1).
func TestMovementVectorEntryLTRFiveCentroids(t *testing.T) {
	now := time.Now()
	tr := newTrack(7, Point{X: 110, Y: 240}, now, "")
	centroids := []Point{{200, 240}, {300, 240}, {420, 240}, {520, 240}}
	for i, c := range centroids {
		tr.observe(c, now.Add(time.Duration(i+1)*250*time.Millisecond))
	}

	start, end, ok := tr.movementVector()
	require.True(t, ok)
	require.Equal(t, Point{X: 110, Y: 240}, start)
	require.Equal(t, Point{X: 520, Y: 240}, end)
}

func TestMovementVectorInsufficientPositionsUndetermined(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, Point{X: 0, Y: 0}, now, "")
	tr.observe(Point{X: 1, Y: 0}, now)
	_, _, ok := tr.movementVector()
	require.False(t, ok, "fewer than minPositionsForClassify must not yield a movement vector")
}

// Boundary: track seen again at exactly 2.000s is retained; beyond it is
// purged (spec §8 boundary behaviors).
func TestTrackExpiryBoundary(t *testing.T) {
	now := time.Now()
	tr := newTrack(1, Point{X: 0, Y: 0}, now, "")

	require.False(t, tr.expired(now.Add(2*time.Second)), "exactly at the expiry window must still be retained")
	require.True(t, tr.expired(now.Add(2*time.Second+time.Millisecond)), "past the expiry window must be purged")
}

// Scenario 5: a track unseen for >2s with no committed direction is
// purged and leaves no event (spec §8 "Track expiry without event").
func TestExpiredTrackNeverCommittedLeavesNoDirection(t *testing.T) {
	now := time.Now()
	tr := newTrack(9, Point{X: 50, Y: 50}, now, "snap.jpg")
	require.False(t, tr.directionLogged)
	require.Equal(t, Direction(""), tr.direction)
	require.True(t, tr.expired(now.Add(3*time.Second)))
}
