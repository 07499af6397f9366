// Package metrics implements the Metrics Aggregator (spec §4.6): stateless
// queries over the Event Store, optionally padded with deterministic
// pseudo-random demonstration values for registered cameras that have no
// events yet in the requested window.
//
// Grounded in query-building style on
// marcopennelli-orbo/internal/database/database.go's dynamic filter
// pattern; the synthetic-padding behavior itself is grounded verbatim on
// original_source/managers/analytics_engine.go's camera_id-seeded
// random.seed(sum(ord(c) for c in camera_id) + i) scheme.
package metrics

import (
	"fmt"
	"math/rand"
	"time"

	"flowguard/internal/store"
)

// CameraLister is the subset of the Camera Registry the aggregator needs:
// the set of registered camera IDs, to pad cameras absent from events.
type CameraLister interface {
	CameraIDs() []string
}

// Aggregator computes Metrics Aggregator outputs over the Event Store.
type Aggregator struct {
	events                  *store.Store
	cameras                 CameraLister
	syntheticPaddingEnabled bool
}

// New constructs an Aggregator. syntheticPaddingEnabled gates the
// demonstration-value padding behind metrics.synthetic_padding_enabled
// (spec §9 Open Question resolution; default false).
func New(events *store.Store, cameras CameraLister, syntheticPaddingEnabled bool) *Aggregator {
	return &Aggregator{events: events, cameras: cameras, syntheticPaddingEnabled: syntheticPaddingEnabled}
}

// seedFor reproduces the original's camera_id character-sum seed, offset by
// i (an hour index or spot index) for deterministic-but-varying values.
func seedFor(cameraID string, i int) int64 {
	var sum int64
	for _, c := range cameraID {
		sum += int64(c)
	}
	return sum + int64(i)
}

// HourlyPoint is one bucket of a time series.
type HourlyPoint struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// CameraCounts returns per-camera camera_id -> count of entry+exit events
// over the trailing window (spec §4.6 "Per-camera counts").
func (a *Aggregator) CameraCounts(hours int) (map[string]int, error) {
	out := make(map[string]int)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	ids := a.cameraIDs()
	if len(ids) == 0 {
		// No registry available: fall back to whatever cameras have events.
		return a.countsFromEventsOnly(since)
	}

	for _, id := range ids {
		n, err := a.events.CountSince(id, since)
		if err != nil {
			return nil, fmt.Errorf("metrics: camera counts: %w", err)
		}
		if n == 0 && a.syntheticPaddingEnabled {
			n = demonstrationCount(id)
		}
		out[id] = n
	}
	return out, nil
}

func (a *Aggregator) countsFromEventsOnly(since time.Time) (map[string]int, error) {
	events, err := a.events.ListEvents(store.ListEventsFilter{From: store.FormatTimestamp(since)})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, e := range events {
		if e.CameraID.Valid && (e.EventType == store.EventEntry || e.EventType == store.EventExit) {
			out[e.CameraID.String]++
		}
	}
	return out, nil
}

func (a *Aggregator) cameraIDs() []string {
	if a.cameras == nil {
		return nil
	}
	return a.cameras.CameraIDs()
}

// demonstrationCount reproduces the original's random.randint(5, 15) padding
// for a camera with zero real events, seeded by camera_id so repeated calls
// within the same process are stable per camera.
func demonstrationCount(cameraID string) int {
	r := rand.New(rand.NewSource(seedFor(cameraID, 0)))
	return 5 + r.Intn(11) // [5, 15]
}

// TimeSeries returns the hourly time series for cameraID over the trailing
// window, one point per hour, oldest first. Hours with zero real events are
// padded with a deterministic pseudo-random value only when
// syntheticPaddingEnabled and the camera has NO real events at all in the
// window (spec §4.6: "Synthetic padding applies only when a camera exists
// in the Registry but has zero events in the window").
func (a *Aggregator) TimeSeries(cameraID string, hours int) ([]HourlyPoint, error) {
	buckets, err := a.events.EntryExitHourly(cameraID, hours)
	if err != nil {
		return nil, fmt.Errorf("metrics: time series: %w", err)
	}

	hasRealData := len(buckets) > 0
	now := time.Now().UTC()
	points := make([]HourlyPoint, 0, hours)
	for i := hours - 1; i >= 0; i-- {
		hourTime := now.Add(-time.Duration(i) * time.Hour)
		hourStr := hourTime.Format("2006-01-02 15:00")
		count := buckets[hourStr]
		if count == 0 && !hasRealData && a.syntheticPaddingEnabled {
			count = syntheticHourlyValue(cameraID, i)
		}
		points = append(points, HourlyPoint{Hour: hourStr, Count: count})
	}
	return points, nil
}

// syntheticHourlyValue reproduces generate_dummy_time_series's
// random.seed(seed + i); random.randint(1, 10) per hour offset i.
func syntheticHourlyValue(cameraID string, hourOffset int) int {
	r := rand.New(rand.NewSource(seedFor(cameraID, hourOffset)))
	return 1 + r.Intn(10) // [1, 10]
}

// Summary is the spec §4.6 "Summary" output over a timeRange window.
type Summary struct {
	TotalDetections int     `json:"totalDetections"`
	AvgPerDay       float64 `json:"avgPerDay"`
	PeakHour        string  `json:"peakHour"`
	PeakCount       int     `json:"peakCount"`
}

// ParseTimeRange parses a "{n}h" or "{n}d" query-string value into hours
// (spec §6.2 "Query string timeRange accepts {n}h or {n}d").
func ParseTimeRange(raw string) (hours int, days float64, err error) {
	if raw == "" {
		raw = "24h"
	}
	n := len(raw)
	if n < 2 {
		return 0, 0, fmt.Errorf("metrics: invalid timeRange %q", raw)
	}
	unit := raw[n-1]
	var value int
	if _, err := fmt.Sscanf(raw[:n-1], "%d", &value); err != nil {
		return 0, 0, fmt.Errorf("metrics: invalid timeRange %q: %w", raw, err)
	}
	switch unit {
	case 'h':
		return value, float64(value) / 24.0, nil
	case 'd':
		return value * 24, float64(value), nil
	default:
		return 0, 0, fmt.Errorf("metrics: invalid timeRange unit in %q", raw)
	}
}

// Summarize computes totalDetections/avgPerDay/peakHour/peakCount over
// timeRange for cameraID (empty = all cameras).
func (a *Aggregator) Summarize(cameraID, timeRange string) (Summary, error) {
	hours, days, err := ParseTimeRange(timeRange)
	if err != nil {
		return Summary{}, err
	}
	if days <= 0 {
		days = 1
	}

	buckets, err := a.events.HourlyMetrics(hours, cameraID)
	if err != nil {
		return Summary{}, fmt.Errorf("metrics: summarize: %w", err)
	}

	var total, peakCount int
	var peakHour string
	for hour, b := range buckets {
		total += b.DetectionCount
		if b.DetectionCount > peakCount {
			peakCount = b.DetectionCount
			peakHour = hour
		}
	}

	var peakLabel string
	if peakHour != "" {
		peakLabel = formatPeakHourLabel(peakHour)
	}

	return Summary{
		TotalDetections: total,
		AvgPerDay:       float64(total) / days,
		PeakHour:        peakLabel,
		PeakCount:       peakCount,
	}, nil
}

// formatPeakHourLabel renders "YYYY-MM-DD HH:00" as "HH:00 - HH+1:00" (spec
// §4.6 "peakHour = HH:00 - HH+1:00").
func formatPeakHourLabel(bucket string) string {
	t, err := time.Parse("2006-01-02 15:04", bucket)
	if err != nil {
		return bucket
	}
	next := t.Add(time.Hour)
	return fmt.Sprintf("%02d:00 - %02d:00", t.Hour(), next.Hour())
}

// Heatmap is a sparse width x height density grid (spec §4.6 "Heatmap
// (stub)"). Placeholder for future spatial density analysis.
type Heatmap struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Grid   [][]int `json:"grid"`
}

// HeatmapStub returns a mostly-zero grid with a few deterministic "hot
// spots", seeded by cameraID (grounded on original_source's get_heatmap).
func HeatmapStub(cameraID string, width, height int) Heatmap {
	if width <= 0 {
		width = 10
	}
	if height <= 0 {
		height = 10
	}
	grid := make([][]int, height)
	for y := range grid {
		grid[y] = make([]int, width)
	}

	r := rand.New(rand.NewSource(seedFor(cameraID, 0)))
	numSpots := 3 + r.Intn(4) // [3, 6]
	for i := 0; i < numSpots; i++ {
		x := r.Intn(width)
		y := r.Intn(height)
		value := 1 + r.Intn(10)
		grid[y][x] = value

		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx >= 0 && nx < width && ny >= 0 && ny < height {
					spread := value / 2
					if grid[ny][nx] < spread {
						grid[ny][nx] = spread
					}
				}
			}
		}
	}
	return Heatmap{Width: width, Height: height, Grid: grid}
}
