package tracking

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector2 is a 2D unit (or near-unit) direction vector.
type Vector2 struct{ X, Y float64 }

func (v Vector2) normalized() Vector2 {
	mag := math.Hypot(v.X, v.Y)
	if mag == 0 {
		return v
	}
	return Vector2{X: v.X / mag, Y: v.Y / mag}
}

func (v Vector2) dot(o Vector2) float64 { return v.X*o.X + v.Y*o.Y }

// symbolicVectors maps the closed set of entry-direction codes to their
// unit vectors (spec §4.3.1).
var symbolicVectors = map[string]Vector2{
	"LTR":  {X: 1, Y: 0},
	"RTL":  {X: -1, Y: 0},
	"BTT":  {X: 0, Y: -1},
	"TTB":  {X: 0, Y: 1},
	"BLTR": Vector2{X: 1, Y: -1}.normalized(),
	"BRTL": Vector2{X: -1, Y: -1}.normalized(),
	"TLBR": Vector2{X: 1, Y: 1}.normalized(),
	"TRBL": Vector2{X: -1, Y: 1}.normalized(),
	// IN/OUT: reserved pending radial implementation, treated as LTR.
	"IN":  {X: 1, Y: 0},
	"OUT": {X: 1, Y: 0},
}

// ParseEntryDirection resolves a ROIConfig.entry_direction value into a
// unit vector: either a symbolic code from the closed set, or a free
// vector string "x,y" (spec §4.3.1). Any other value is rejected.
func ParseEntryDirection(raw string) (Vector2, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if v, ok := symbolicVectors[code]; ok {
		return v, nil
	}

	parts := strings.SplitN(raw, ",", 2)
	if len(parts) == 2 {
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX == nil && errY == nil {
			mag := math.Hypot(x, y)
			if mag >= 1e-6 {
				return Vector2{X: x, Y: y}.normalized(), nil
			}
			return Vector2{}, fmt.Errorf("tracking: entry direction vector %q has near-zero magnitude", raw)
		}
	}
	return Vector2{}, fmt.Errorf("tracking: invalid entry direction %q", raw)
}

// Direction is a committed classification outcome.
type Direction string

const (
	DirectionEntry       Direction = "entry"
	DirectionExit        Direction = "exit"
	DirectionUndetermined Direction = ""
)

const (
	minMovementMagnitude = 2.0
	dotProductThreshold   = 0.2
)

// classifyMovement computes the movement vector from start to end centroid
// averages and classifies it against the camera's entry direction (spec
// §4.3 step 4).
func classifyMovement(start, end Point, entryDir Vector2) Direction {
	dx, dy := end.X-start.X, end.Y-start.Y
	magnitude := math.Hypot(dx, dy)
	if magnitude <= minMovementMagnitude {
		return DirectionUndetermined
	}

	v := Vector2{X: dx, Y: dy}.normalized()
	d := v.dot(entryDir)
	switch {
	case d > dotProductThreshold:
		return DirectionEntry
	case d < -dotProductThreshold:
		return DirectionExit
	default:
		return DirectionUndetermined
	}
}
