package api

import (
	"net/http"
	"strconv"

	"flowguard/internal/store"
)

// eventPayload is the wire shape for a detection_events row.
type eventPayload struct {
	ID           int64  `json:"id"`
	Timestamp    string `json:"timestamp"`
	EventType    string `json:"event_type"`
	Direction    string `json:"direction,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Details      string `json:"details,omitempty"`
	CameraID     string `json:"camera_id,omitempty"`
	SnapshotPath string `json:"snapshot_path,omitempty"`
}

func eventResponse(e store.DetectionEvent) eventPayload {
	return eventPayload{
		ID: e.ID, Timestamp: e.Timestamp, EventType: string(e.EventType),
		Direction: e.Direction.String, Confidence: e.Confidence.Float64,
		Details: e.Details.String, CameraID: e.CameraID.String, SnapshotPath: e.SnapshotPath.String,
	}
}

func parseListEventsFilter(r *http.Request) store.ListEventsFilter {
	q := r.URL.Query()
	f := store.ListEventsFilter{
		CameraID: q.Get("camera_id"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Limit:    100,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}

// handleListEvents implements GET /api/events: paginated, filterable reads
// over the Event Store (spec §4.4).
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.Store.ListEvents(parseListEventsFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]eventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRecentDetections implements GET /api/detections/recent: the most
// recent events of every type, newest first, with the same camera_id,
// from, to and offset filters as /api/events, capped at 20 unless
// overridden by ?limit=.
func (s *Server) handleRecentDetections(w http.ResponseWriter, r *http.Request) {
	f := parseListEventsFilter(r)
	if f.Limit == 100 && r.URL.Query().Get("limit") == "" {
		f.Limit = 20
	}
	events, err := s.Store.ListEvents(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]eventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}
