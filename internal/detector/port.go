// Package detector implements the Detector capability port (spec §6.1):
// detect_and_track(frame) -> iterable<{class_id, confidence, bbox,
// track_id?}>, with two adapters (HTTP, gRPC) for the external inference
// service.
package detector

import "context"

// BBox is a pixel-space bounding box [x1, y1, x2, y2].
type BBox [4]float64

// Detection is one result row from the external Detector capability.
// TrackID is nil when the external detector could not associate this
// detection with a persistent track; the Tracking Pipeline discards such
// rows (spec §4.3: "Detections without a track_id are discarded").
type Detection struct {
	ClassID    int
	Confidence float64
	BBox       BBox
	TrackID    *int
}

// Port is the capability contract the Tracking Pipeline depends on.
// Grounded on marcopennelli-orbo/internal/pipeline/detectors/yolo_adapter.go's
// YOLOAdapter, extended here to propagate TrackID end to end — a gap the
// teacher's convertResult/convertAnnotatedResult left unfilled.
type Port interface {
	DetectAndTrack(ctx context.Context, frame []byte) ([]Detection, error)
	IsHealthy(ctx context.Context) bool
}
