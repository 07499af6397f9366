package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPULoadSampler is the 1Hz background CPU% sampler (spec §4.3 "Load-aware
// scaling"), grounded on CarlosSprekelsen-CameraRecorder's
// system_metrics_manager.go use of gopsutil/v3/cpu.Percent (the teacher
// repo has no CPU sampling of its own).
type CPULoadSampler struct {
	mu      sync.Mutex
	samples []float64
}

// NewCPULoadSampler constructs an idle sampler; call Run to start sampling.
func NewCPULoadSampler() *CPULoadSampler {
	return &CPULoadSampler{}
}

// Run blocks, sampling CPU% once per second until ctx is cancelled.
func (s *CPULoadSampler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			percentages, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil || len(percentages) == 0 {
				continue
			}
			s.record(percentages[0])
		}
	}
}

func (s *CPULoadSampler) record(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, pct)
	if len(s.samples) > 30 {
		s.samples = s.samples[len(s.samples)-30:]
	}
}

// Average returns the mean of the retained samples and whether at least 5
// samples have been collected (spec §4.3: "fewer than 5 samples => factor
// 1.0").
func (s *CPULoadSampler) Average() (avg float64, enough bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) < 5 {
		return 0, false
	}
	var sum float64
	for _, v := range s.samples {
		sum += v
	}
	return sum / float64(len(s.samples)), true
}

// mainCameraID is the literal camera-id discriminator used by the
// priority table (spec §4.3 table, confirmed against
// original_source/managers/detection_manager.py's `if camera_id ==
// "main":` — a literal string comparison, not a configurable flag).
const mainCameraID = "main"

// priorityFactor implements the CPU-avg / camera-priority table (spec
// §4.3).
func priorityFactor(cameraID string, avgCPU float64, haveEnoughSamples bool) float64 {
	if !haveEnoughSamples {
		return 1.0
	}
	isMain := cameraID == mainCameraID

	switch {
	case avgCPU <= 60:
		return 1.0
	case avgCPU <= 80:
		if isMain {
			return 1.1
		}
		return 1.5
	default:
		if isMain {
			return 1.2
		}
		return 2.0
	}
}
