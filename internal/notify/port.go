// Package notify implements the Notification Port (spec §6.3): a
// fire-and-forget, best-effort outbound interface for push events, with
// webhook and Telegram adapters.
package notify

import (
	"context"
	"time"
)

// Event is the JSON-compatible payload passed to Port.Emit. Timestamp is
// injected by Emit if the caller left it zero (spec §6: "timestamp
// injected if absent").
type Event struct {
	Type      string                 `json:"event_type"`
	CameraID  string                 `json:"camera_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// Port is the outbound push-notification capability. Implementations must
// be fire-and-forget: failures are logged, never retried, and never block
// the caller (spec §6.3, §7).
type Port interface {
	Emit(ctx context.Context, event Event) error
}

// Multi fans an event out to every configured adapter, continuing past
// individual failures (best-effort, spec §6.3).
type Multi struct {
	Ports []Port
}

// Emit dispatches to every adapter. The first error, if any, is returned
// for logging purposes only — callers must not treat it as grounds to
// retry (spec §7: push notification failures are never retried).
func (m Multi) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range m.Ports {
		if err := p.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
