package tracking

import "flowguard/internal/store"

// canvasWidth/canvasHeight are the canonical ROI authoring canvas (spec
// §4.3 step 1: "the canonical canvas is 320x240").
const (
	canvasWidth  = 320.0
	canvasHeight = 240.0
	scaleTrigger = 1.5 // scale only when frame is >= 1.5x wider than canvas
)

// Rect is an axis-aligned pixel-space rectangle.
type Rect struct{ X1, Y1, X2, Y2 float64 }

func (r Rect) empty() bool { return r.X2 <= r.X1 || r.Y2 <= r.Y1 }

func (r Rect) contains(p Point) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// cropRegion resolves the ROI rectangle to crop for a frame of the given
// native resolution (spec §4.3 step 1). When roi is nil, the full frame is
// used. Returns the resolved rect plus its offset (rx1, ry1), used to
// restore coordinates onto the full frame after inference.
func cropRegion(roi *store.ROIConfig, frameWidth, frameHeight int) (rect Rect, offsetX, offsetY float64) {
	if roi == nil {
		return Rect{X1: 0, Y1: 0, X2: float64(frameWidth), Y2: float64(frameHeight)}, 0, 0
	}

	x1, y1, x2, y2 := roi.X1, roi.Y1, roi.X2, roi.Y2
	if float64(frameWidth) >= scaleTrigger*canvasWidth {
		scaleX := float64(frameWidth) / canvasWidth
		scaleY := float64(frameHeight) / canvasHeight
		x1, x2 = x1*scaleX, x2*scaleX
		y1, y2 = y1*scaleY, y2*scaleY
	}

	r := Rect{X1: clamp(x1, 0, float64(frameWidth)), Y1: clamp(y1, 0, float64(frameHeight)),
		X2: clamp(x2, 0, float64(frameWidth)), Y2: clamp(y2, 0, float64(frameHeight))}

	if r.empty() {
		return Rect{X1: 0, Y1: 0, X2: float64(frameWidth), Y2: float64(frameHeight)}, 0, 0
	}
	return r, r.X1, r.Y1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
