package tracking

import (
	"time"
)

// Point is a centroid position in frame-native pixel coordinates.
type Point struct{ X, Y float64 }

const (
	positionHistoryCapacity = 10
	trackExpiryWindow       = 2 * time.Second
	minPositionsForClassify = 3
)

// Track is the ephemeral, in-memory per-camera tracking state described
// in spec §3. Owned exclusively by its camera's Tracking worker.
type Track struct {
	ID int

	positions []Point // bounded queue, capacity 10, oldest first
	firstSeen time.Time
	lastSeen  time.Time

	inROI bool

	direction       Direction // committed label, "" (none) until set
	directionLogged bool

	snapshotPath string // captured once, at birth
}

// newTrack births a Track on first sighting of id (spec §4.3 "Track
// lifecycle / Birth").
func newTrack(id int, firstPos Point, now time.Time, snapshotPath string) *Track {
	return &Track{
		ID:           id,
		positions:    []Point{firstPos},
		firstSeen:    now,
		lastSeen:     now,
		snapshotPath: snapshotPath,
	}
}

// observe appends a new centroid, bounded to positionHistoryCapacity
// (spec §4.3 step 3: "Append centroid to its bounded position history").
func (t *Track) observe(p Point, now time.Time) {
	t.positions = append(t.positions, p)
	if len(t.positions) > positionHistoryCapacity {
		t.positions = t.positions[len(t.positions)-positionHistoryCapacity:]
	}
	t.lastSeen = now
}

// expired reports whether the track has been unseen for longer than the
// expiry window (spec §4.3 "Expiry").
func (t *Track) expired(now time.Time) bool {
	return now.Sub(t.lastSeen) > trackExpiryWindow
}

// movementVector computes the (start, end) centroid averages per spec
// §4.3 step 4: k = max(1, floor(N/3)), averaging the first k and last k
// positions.
func (t *Track) movementVector() (start, end Point, ok bool) {
	n := len(t.positions)
	if n < minPositionsForClassify {
		return Point{}, Point{}, false
	}
	k := n / 3
	if k < 1 {
		k = 1
	}

	start = average(t.positions[:k])
	end = average(t.positions[n-k:])
	return start, end, true
}

func average(pts []Point) Point {
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}
