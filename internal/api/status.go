package api

import (
	"net/http"
	"time"
)

// healthResponse is the body of the GET /api/health liveness endpoint: a
// fixed {"status":"ok"} returned whenever the HTTP server is serving.
type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// cameraStatus is one row of GET /api/status (spec §6: "current
// person_detected/direction/last_detection_time per camera").
type cameraStatus struct {
	CameraID          string `json:"camera_id"`
	Enabled           bool   `json:"enabled"`
	Active            bool   `json:"active"`
	PersonDetected    bool   `json:"person_detected"`
	Direction         string `json:"direction,omitempty"`
	LastDetectionTime string `json:"last_detection_time,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.Registry == nil {
		writeJSON(w, http.StatusOK, []cameraStatus{})
		return
	}

	entries := s.Registry.ListAll()
	out := make([]cameraStatus, 0, len(entries))
	for _, e := range entries {
		st := cameraStatus{CameraID: e.ID, Enabled: e.Enabled}
		if fs := e.FrameSource(); fs != nil {
			st.Active = fs.IsActive()
		}
		if s.Tracking != nil {
			if agg, ok := s.Tracking.Aggregate(e.ID); ok {
				st.PersonDetected = agg.PersonDetected
				st.Direction = string(agg.CurrentDirection)
				if !agg.LastDetectionTime.IsZero() {
					st.LastDetectionTime = agg.LastDetectionTime.UTC().Format(time.RFC3339)
				}
			}
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}
