// Package registry implements the Camera Registry (spec §4.2): a named,
// keyed collection of Frame Sources behind a process-wide lock.
//
// Grounded on marcopennelli-orbo/internal/camera/camera.go's
// CameraManager: device-existence probing, the open-read-close validation
// probe, network-source prefix discrimination (isNetworkSource), and the
// stop-then-replace pattern for source changes are reused and adapted from
// Camera/CameraManager onto capture.Source.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"flowguard/internal/capture"
	"flowguard/internal/logging"
)

// ErrNotFound is returned by Get/Remove when id is unknown.
var ErrNotFound = errors.New("registry: camera not found")

// Entry is one registered camera and its backing Frame Source.
type Entry struct {
	ID      string
	Source  string
	Name    string
	Enabled bool

	frame *capture.Source
}

// FrameSource returns the backing capture.Source. Add always constructs one,
// and starts it only when the camera is enabled.
func (e *Entry) FrameSource() *capture.Source { return e.frame }

// Registry is the process-wide Camera Registry (spec §4.2).
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	cfg     capture.Config
	log     *logging.Logger
	ctx     context.Context

	// probeFn validates a source before Add commits it. Defaults to the
	// real open-read-close probe; tests substitute a fake to avoid
	// spawning ffmpeg.
	probeFn func(source string) error
}

// New constructs an empty Registry. ctx bounds the lifetime of every Frame
// Source it starts (cancelling ctx stops every camera).
func New(ctx context.Context, cfg capture.Config) *Registry {
	r := &Registry{
		entries: make(map[string]*Entry),
		cfg:     cfg,
		log:     logging.New("registry"),
		ctx:     ctx,
	}
	r.probeFn = r.probe
	return r
}

// normalizeSource coerces bare integer strings to /dev/video<N> (spec §4.2:
// "Numeric strings are coerced to integer device indices").
func normalizeSource(source string) string {
	if n, ok := capture.IsNumericDeviceIndex(source); ok {
		return fmt.Sprintf("/dev/video%d", n)
	}
	return source
}

// probe validates a source by opening, reading one frame, and stopping —
// retried up to 3x (spec §4.2 add semantics), grounded on
// CameraManager.activate's captureFrameWithFfmpeg probe.
func (r *Registry) probe(source string) error {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		probeCtx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
		src := capture.New("probe", source, r.cfg)
		src.Start(probeCtx)

		deadline := time.After(5 * time.Second)
		ok := false
		select {
		case <-src.NotifyChan():
			ok = true
		case <-deadline:
		case <-probeCtx.Done():
		}
		src.Stop()
		cancel()

		if ok {
			return nil
		}
		lastErr = fmt.Errorf("registry: probe attempt %d: no frame received from %s", attempt, source)
	}
	return lastErr
}

// Add registers a camera (spec §4.2 add semantics).
func (r *Registry) Add(id, source, name string, enabled bool) error {
	source = normalizeSource(source)

	r.mu.Lock()
	existing, exists := r.entries[id]
	r.mu.Unlock()

	if exists && existing.Source == source {
		return nil // no-op: identical source
	}

	if err := r.probeFn(source); err != nil {
		return err
	}

	if exists {
		existing.frame.Stop()
		time.Sleep(500 * time.Millisecond) // grace period, spec §4.2
	}

	entry := &Entry{ID: id, Source: source, Name: name, Enabled: enabled}
	entry.frame = capture.New(id, source, r.cfg)
	if enabled {
		entry.frame.Start(r.ctx)
	}

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()
	return nil
}

// Remove stops and deletes a camera (spec §4.2 remove semantics).
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	entry.frame.Stop()
	return nil
}

// Get returns the registered Entry for id.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// ListAll returns every registered camera, sorted by id.
func (r *Registry) ListAll() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CameraIDs returns every registered camera id, satisfying
// metrics.CameraLister.
func (r *Registry) CameraIDs() []string {
	all := r.ListAll()
	ids := make([]string, len(all))
	for i, e := range all {
		ids[i] = e.ID
	}
	return ids
}

// ListActive returns every registered camera whose Frame Source is
// currently streaming.
func (r *Registry) ListActive() []*Entry {
	all := r.ListAll()
	out := all[:0:0]
	for _, e := range all {
		if e.frame != nil && e.frame.IsActive() {
			out = append(out, e)
		}
	}
	return out
}

// StartAll starts every enabled, not-yet-started camera.
func (r *Registry) StartAll() {
	for _, e := range r.ListAll() {
		if e.Enabled && e.frame != nil {
			e.frame.Start(r.ctx)
		}
	}
}

// StopAll stops every camera's Frame Source.
func (r *Registry) StopAll() {
	for _, e := range r.ListAll() {
		if e.frame != nil {
			e.frame.Stop()
		}
	}
}
