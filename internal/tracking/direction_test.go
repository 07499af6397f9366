package tracking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEntryDirectionSymbolicCodes(t *testing.T) {
	v, err := ParseEntryDirection("LTR")
	require.NoError(t, err)
	require.InDelta(t, 1, v.X, 1e-9)
	require.InDelta(t, 0, v.Y, 1e-9)

	v, err = ParseEntryDirection("tlbr")
	require.NoError(t, err)
	require.InDelta(t, 0.7071, v.X, 1e-3)
	require.InDelta(t, 0.7071, v.Y, 1e-3)
}

func TestParseEntryDirectionFreeVector(t *testing.T) {
	v, err := ParseEntryDirection("0.7071,0.7071")
	require.NoError(t, err)
	require.InDelta(t, 0.7071, v.X, 1e-3)
	require.InDelta(t, 0.7071, v.Y, 1e-3)
}

func TestParseEntryDirectionRejectsNearZeroVector(t *testing.T) {
	_, err := ParseEntryDirection("0.0000001,0")
	require.Error(t, err)
}

func TestParseEntryDirectionRejectsGarbage(t *testing.T) {
	_, err := ParseEntryDirection("not-a-direction")
	require.Error(t, err)
}

// Scenario 1: Entry via LTR (spec §8).
func TestClassifyMovementEntryLTR(t *testing.T) {
	entryVec, err := ParseEntryDirection("LTR")
	require.NoError(t, err)

	start := Point{X: 110, Y: 240}
	end := Point{X: 520, Y: 240}
	require.Equal(t, DirectionEntry, classifyMovement(start, end, entryVec))
}

// Scenario 2: free-vector TLBR, (100,100)->(300,300) classifies entry
// (dot product ~= +1, spec §8).
func TestClassifyMovementFreeVectorTLBR(t *testing.T) {
	entryVec, err := ParseEntryDirection("0.7071,0.7071")
	require.NoError(t, err)

	require.Equal(t, DirectionEntry, classifyMovement(Point{X: 100, Y: 100}, Point{X: 300, Y: 300}, entryVec))
}

// Scenario 3: perpendicular motion against LTR -> undetermined (spec §8).
func TestClassifyMovementPerpendicularUndetermined(t *testing.T) {
	entryVec, err := ParseEntryDirection("LTR")
	require.NoError(t, err)

	require.Equal(t, DirectionUndetermined, classifyMovement(Point{X: 300, Y: 100}, Point{X: 300, Y: 380}, entryVec))
}

func TestClassifyMovementMagnitudeExactly2PxUndetermined(t *testing.T) {
	entryVec, err := ParseEntryDirection("LTR")
	require.NoError(t, err)
	require.Equal(t, DirectionUndetermined, classifyMovement(Point{X: 0, Y: 0}, Point{X: 2, Y: 0}, entryVec))
}

func TestClassifyMovementDotProductExactlyBoundaryUndetermined(t *testing.T) {
	// A unit vector at exactly dot=0.2 against LTR=(1,0): (0.2, sqrt(1-0.04)).
	entryVec := Vector2{X: 1, Y: 0}
	boundary := Vector2{X: 0.2, Y: math.Sqrt(1 - 0.2*0.2)}
	require.InDelta(t, 0.2, boundary.dot(entryVec), 1e-9)

	require.Equal(t, DirectionUndetermined, classifyMovement(Point{X: 0, Y: 0}, Point{X: boundary.X * 10, Y: boundary.Y * 10}, entryVec))
}
