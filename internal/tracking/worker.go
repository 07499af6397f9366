// Package tracking implements the Tracking Pipeline (spec §4.3): one
// worker per camera, reading the Frame Source's freshest frame, cropping
// to the configured ROI, invoking the Detector in tracking mode, updating
// an in-memory Track table, classifying movement direction, and
// committing DetectionEvent rows, snapshot files, and push notifications.
//
// Grounded on marcopennelli-orbo/internal/pipeline/detection_pipeline.go's
// per-camera worker goroutine shape (run/processFrame loop, stats-under-
// mutex pattern) and internal/pipeline/strategies/{continuous,hybrid,
// scheduled}.go's mutex-guarded "now.Sub(last) >= interval" adaptive-rate
// gate, extended with the CPU-priority-factor multiplier.
package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"flowguard/internal/capture"
	"flowguard/internal/detector"
	"flowguard/internal/eventbus"
	"flowguard/internal/logging"
	"flowguard/internal/notify"
	"flowguard/internal/snapshot"
	"flowguard/internal/store"
)

// RateConfig configures the adaptive-rate scheduler (spec §4.3 "Adaptive
// rate").
type RateConfig struct {
	IdleFPS            float64 // default 1
	ActiveFPS          float64 // default 5
	PersonClassID      int
	DirectionThreshold float64 // unused placeholder for config symmetry; thresholds are fixed per spec
}

func (c RateConfig) withDefaults() RateConfig {
	if c.IdleFPS <= 0 {
		c.IdleFPS = 1
	}
	if c.ActiveFPS <= 0 {
		c.ActiveFPS = 5
	}
	return c
}

// AggregateState is the per-camera status summary (spec §4.3 "Per-camera
// aggregate state").
type AggregateState struct {
	PersonDetected     bool
	LastDetectionTime  time.Time
	CurrentDirection   Direction
}

// Worker is one camera's Tracking Pipeline instance.
type Worker struct {
	cameraID string
	source   *capture.Source
	det      detector.Port
	events   *store.Store
	snaps    *snapshot.Store
	notifier notify.Port
	bus      *eventbus.Bus
	cpu      *CPULoadSampler
	rate     RateConfig
	log      *logging.Logger

	mu          sync.Mutex
	tracks      map[int]*Track
	entryVector Vector2
	roi         *store.ROIConfig
	active      bool
	zeroStreak  int
	aggregate   AggregateState
}

// NewWorker constructs a Worker; call LoadROI then Run. bus may be nil if
// no in-process subscriber (e.g. the WebSocket hub) is wired.
func NewWorker(cameraID string, source *capture.Source, det detector.Port, events *store.Store, snaps *snapshot.Store, notifier notify.Port, bus *eventbus.Bus, cpu *CPULoadSampler, rate RateConfig) *Worker {
	return &Worker{
		cameraID: cameraID,
		source:   source,
		det:      det,
		events:   events,
		snaps:    snaps,
		notifier: notifier,
		bus:      bus,
		cpu:      cpu,
		rate:     rate.withDefaults(),
		log:      logging.New("tracking").WithField("camera_id", cameraID),
		tracks:   make(map[int]*Track),
	}
}

// LoadROI (re)loads ROIConfig from the Event Store (spec §4.3 "Reads:
// ROIConfig from Event Store (at start, and on explicit reload)").
func (w *Worker) LoadROI() {
	roi, err := w.events.GetROI(w.cameraID)
	if err != nil {
		w.mu.Lock()
		w.roi = nil
		w.entryVector = Vector2{X: 1, Y: 0}
		w.mu.Unlock()
		return
	}

	vec, err := ParseEntryDirection(roi.EntryDirection)
	if err != nil {
		w.log.WithError(err).Warn("tracking: invalid entry direction, defaulting to LTR")
		vec = Vector2{X: 1, Y: 0}
	}

	w.mu.Lock()
	w.roi = roi
	w.entryVector = vec
	w.mu.Unlock()
}

// Aggregate returns a snapshot of the per-camera aggregate state.
func (w *Worker) Aggregate() AggregateState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aggregate
}

// Run blocks, driving the adaptive-rate scheduling loop until ctx is
// cancelled (spec §4.3).
func (w *Worker) Run(ctx context.Context) {
	w.LoadROI()

	var lastProcessed time.Time
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		interval := w.currentInterval()
		if time.Since(lastProcessed) < interval {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		frame := w.source.Latest()
		if frame == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		lastProcessed = time.Now()
		w.processFrame(ctx, frame)
	}
}

// currentInterval computes the adaptive-rate interval, scaled by the
// CPU-priority factor (spec §4.3 "Adaptive rate" / "Load-aware scaling").
func (w *Worker) currentInterval() time.Duration {
	w.mu.Lock()
	active := w.active
	w.mu.Unlock()

	fps := w.rate.IdleFPS
	if active {
		fps = w.rate.ActiveFPS
	}
	base := time.Duration(float64(time.Second) / fps)

	factor := 1.0
	if w.cpu != nil {
		avg, enough := w.cpu.Average()
		factor = priorityFactor(w.cameraID, avg, enough)
	}
	return time.Duration(float64(base) * factor)
}

// processFrame runs the six frame-processing steps (spec §4.3 "Frame
// processing").
func (w *Worker) processFrame(ctx context.Context, frame *capture.Frame) {
	w.mu.Lock()
	roi := w.roi
	entryVec := w.entryVector
	w.mu.Unlock()

	width, height := frameDimensions(frame.Data)
	cropRect, offsetX, offsetY := cropRegion(roi, width, height)
	cropped := cropJPEG(frame.Data, cropRect, width, height)

	detectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	dets, err := w.det.DetectAndTrack(detectCtx, cropped)
	cancel()
	if err != nil {
		w.log.WithError(err).Warn("tracking: detector inference failed")
		time.Sleep(500 * time.Millisecond)
		return
	}

	now := time.Now()
	var roiRect *Rect
	if roi != nil {
		r := Rect{X1: roi.X1, Y1: roi.Y1, X2: roi.X2, Y2: roi.Y2}
		roiRect = &r
	}

	sawPerson := false
	for _, d := range dets {
		if d.ClassID != w.rate.PersonClassID || d.TrackID == nil {
			continue
		}
		sawPerson = true
		centroid := Point{
			X: (d.BBox[0]+d.BBox[2])/2 + offsetX,
			Y: (d.BBox[1]+d.BBox[3])/2 + offsetY,
		}
		w.updateTrack(*d.TrackID, centroid, now, roiRect, entryVec, frame.Data, d.BBox, d.Confidence, offsetX, offsetY)
	}

	w.expireTracks(now)
	w.updateAggregate(sawPerson, now)
}

func (w *Worker) updateTrack(id int, centroid Point, now time.Time, roiRect *Rect, entryVec Vector2, frameJPEG []byte, box detector.BBox, confidence float64, offsetX, offsetY float64) {
	w.mu.Lock()
	track, exists := w.tracks[id]
	if !exists {
		path := w.captureBirthSnapshot(frameJPEG, now, box, confidence, offsetX, offsetY)
		track = newTrack(id, centroid, now, path)
		w.tracks[id] = track
	}
	w.mu.Unlock()

	wasInROI := track.inROI
	track.observe(centroid, now)
	if roiRect != nil {
		track.inROI = roiRect.contains(centroid)
	} else {
		track.inROI = true
	}
	boundaryFlip := roiRect != nil && wasInROI != track.inROI

	if track.directionLogged {
		return
	}

	start, end, ok := track.movementVector()
	if ok {
		if dir := classifyMovement(start, end, entryVec); dir != DirectionUndetermined {
			w.commit(track, dir)
			return
		}
	}

	// ROI-boundary fallback (spec §4.3 step 5): sole non-movement-vector
	// source of a direction event.
	if boundaryFlip {
		dir := DirectionExit
		if track.inROI {
			dir = DirectionEntry
		}
		w.commit(track, dir)
	}
}

// captureBirthSnapshot writes exactly one snapshot at track birth (spec
// §4.3 "Birth"). Failures are logged; processing proceeds with an empty
// path (spec §4.3 "Failure semantics").
func (w *Worker) captureBirthSnapshot(frameJPEG []byte, now time.Time, box detector.BBox, confidence float64, offsetX, offsetY float64) string {
	if w.snaps == nil {
		return ""
	}
	annotated := drawDetectionOverlay(frameJPEG, box, confidence, offsetX, offsetY)
	path, err := w.snaps.Write(w.cameraID, now, annotated)
	if err != nil {
		w.log.WithError(err).Warn("tracking: snapshot write failed")
		return ""
	}
	return path
}

// commit finalizes a Track's direction classification (spec §4.3 step 6).
func (w *Worker) commit(track *Track, dir Direction) {
	track.direction = dir
	track.directionLogged = true

	eventType := store.EventEntry
	if dir == DirectionExit {
		eventType = store.EventExit
	}

	trackID := track.ID
	_, err := w.events.WriteEvent(store.DetectionEvent{
		EventType:    eventType,
		CameraID:     nullString(w.cameraID),
		SnapshotPath: nullString(track.snapshotPath),
		Details:      nullString(fmt.Sprintf(`{"track_id":%d}`, trackID)),
	})
	if err != nil {
		// spec §4.3 failure semantics: log, don't retry, don't block.
		w.log.WithError(err).Error("tracking: event store write failed")
	}

	if w.notifier != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = w.notifier.Emit(ctx, notify.Event{
				Type:     string(eventType),
				CameraID: w.cameraID,
				Payload: map[string]interface{}{
					"track_id":      trackID,
					"direction":     string(dir),
					"snapshot_path": track.snapshotPath,
				},
			})
		}()
	}

	if w.bus != nil {
		w.bus.Publish(eventbus.Event{
			CameraID:  w.cameraID,
			Type:      string(eventType),
			Direction: string(dir),
			TrackID:   &trackID,
			Detected:  true,
			Timestamp: time.Now(),
		})
	}

	w.mu.Lock()
	w.aggregate.CurrentDirection = dir
	w.mu.Unlock()
}

// expireTracks purges tracks unseen for > 2s (spec §4.3 "Expiry").
func (w *Worker) expireTracks(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.tracks {
		if t.expired(now) {
			delete(w.tracks, id)
		}
	}
}

// updateAggregate toggles person_detected / last_detection_time per spec
// §4.3 "Per-camera aggregate state". On the true->false transition it
// writes a detection_end event carrying the last committed direction,
// mirroring original_source/managers/dashboard_manager.py's
// _process_detection_events (the "person left frame" branch) — this is
// the row spec §4.4's hourly-metrics and direction-count query contracts
// aggregate over.
func (w *Worker) updateAggregate(sawPerson bool, now time.Time) {
	w.mu.Lock()
	wasDetected := w.aggregate.PersonDetected
	lastDirection := w.aggregate.CurrentDirection
	if sawPerson {
		w.zeroStreak = 0
		w.aggregate.PersonDetected = true
		w.aggregate.LastDetectionTime = now
		w.active = true
	} else {
		w.zeroStreak++
		if w.zeroStreak >= 5 {
			w.aggregate.PersonDetected = false
			w.active = false
		}
	}
	nowDetected := w.aggregate.PersonDetected
	w.mu.Unlock()

	if nowDetected != wasDetected {
		if wasDetected && !nowDetected {
			w.commitDetectionEnd(lastDirection)
		}
		if w.bus != nil {
			w.bus.Publish(eventbus.Event{
				CameraID:  w.cameraID,
				Type:      "status",
				Detected:  nowDetected,
				Timestamp: now,
			})
		}
	}
}

// commitDetectionEnd writes the detection_end row for a person-left-frame
// transition (spec §4.4). dir is "unknown" (empty direction) when no
// track ever completed a direction classification during the detection.
func (w *Worker) commitDetectionEnd(dir Direction) {
	_, err := w.events.WriteEvent(store.DetectionEvent{
		EventType: store.EventDetectionEnd,
		CameraID:  nullString(w.cameraID),
		Direction: nullString(string(dir)),
	})
	if err != nil {
		// spec §4.3 failure semantics: log, don't retry, don't block.
		w.log.WithError(err).Error("tracking: detection_end write failed")
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
