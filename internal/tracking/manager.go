package tracking

import (
	"context"
	"sync"

	"flowguard/internal/capture"
	"flowguard/internal/detector"
	"flowguard/internal/eventbus"
	"flowguard/internal/logging"
	"flowguard/internal/notify"
	"flowguard/internal/snapshot"
	"flowguard/internal/store"
)

// Manager owns one Worker per camera, starting and stopping them alongside
// the Camera Registry's Frame Sources.
type Manager struct {
	det      detector.Port
	events   *store.Store
	snaps    *snapshot.Store
	notifier notify.Port
	bus      *eventbus.Bus
	cpu      *CPULoadSampler
	rate     RateConfig
	log      *logging.Logger

	mu      sync.Mutex
	workers map[string]*Worker
	cancels map[string]context.CancelFunc
}

// NewManager constructs a tracking Manager. bus may be nil if no in-process
// subscriber is wired.
func NewManager(det detector.Port, events *store.Store, snaps *snapshot.Store, notifier notify.Port, bus *eventbus.Bus, cpu *CPULoadSampler, rate RateConfig) *Manager {
	return &Manager{
		det:      det,
		events:   events,
		snaps:    snaps,
		notifier: notifier,
		bus:      bus,
		cpu:      cpu,
		rate:     rate,
		log:      logging.New("tracking.manager"),
		workers:  make(map[string]*Worker),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// StartCamera spawns a Worker for cameraID bound to source, under ctx.
func (m *Manager) StartCamera(ctx context.Context, cameraID string, source *capture.Source) {
	m.mu.Lock()
	if _, exists := m.workers[cameraID]; exists {
		m.mu.Unlock()
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	w := NewWorker(cameraID, source, m.det, m.events, m.snaps, m.notifier, m.bus, m.cpu, m.rate)
	m.workers[cameraID] = w
	m.cancels[cameraID] = cancel
	m.mu.Unlock()

	go w.Run(workerCtx)
}

// StopCamera cancels cameraID's Worker and removes it.
func (m *Manager) StopCamera(cameraID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[cameraID]
	if ok {
		delete(m.cancels, cameraID)
		delete(m.workers, cameraID)
	}
	m.mu.Unlock()

	if ok {
		cancel()
	}
}

// ReloadROI re-reads ROIConfig for cameraID from the Event Store (spec
// §4.3: "ROIConfig from Event Store (at start, and on explicit reload)").
func (m *Manager) ReloadROI(cameraID string) {
	m.mu.Lock()
	w, ok := m.workers[cameraID]
	m.mu.Unlock()
	if ok {
		w.LoadROI()
	}
}

// Aggregate returns the aggregate status for cameraID, if its worker is
// running.
func (m *Manager) Aggregate(cameraID string) (AggregateState, bool) {
	m.mu.Lock()
	w, ok := m.workers[cameraID]
	m.mu.Unlock()
	if !ok {
		return AggregateState{}, false
	}
	return w.Aggregate(), true
}

// StopAll cancels every running Worker.
func (m *Manager) StopAll() {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(m.cancels))
	for id, cancel := range m.cancels {
		cancels = append(cancels, cancel)
		delete(m.cancels, id)
		delete(m.workers, id)
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
