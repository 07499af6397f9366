package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowguard/internal/store"
	"flowguard/internal/tracking"
)

// roiPayload is the request body for POST /api/cameras/{id}/roi.
type roiPayload struct {
	X1             float64 `json:"x1"`
	Y1             float64 `json:"y1"`
	X2             float64 `json:"x2"`
	Y2             float64 `json:"y2"`
	EntryDirection string  `json:"entry_direction"`
}

// handleSetROI validates and persists a camera's ROIConfig, then signals
// the running Tracking worker to reload it (spec §4.3: "ROIConfig from
// Event Store at start, and on explicit reload").
func (s *Server) handleSetROI(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")

	var p roiPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.EntryDirection == "" {
		writeError(w, http.StatusBadRequest, "entry_direction is required")
		return
	}
	if p.X2 <= p.X1 || p.Y2 <= p.Y1 {
		writeError(w, http.StatusUnprocessableEntity, "roi rectangle must have positive width and height")
		return
	}
	if _, err := tracking.ParseEntryDirection(p.EntryDirection); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	roi := store.ROIConfig{CameraID: cameraID, X1: p.X1, Y1: p.Y1, X2: p.X2, Y2: p.Y2, EntryDirection: p.EntryDirection}
	if err := s.Store.UpsertROI(roi); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.Tracking != nil {
		s.Tracking.ReloadROI(cameraID)
	}
	writeJSON(w, http.StatusOK, p)
}

// handleClearROI removes a camera's ROIConfig, reverting it to whole-frame
// detection with no direction classification (spec §3).
func (s *Server) handleClearROI(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")
	if err := s.Store.ClearROI(cameraID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.Tracking != nil {
		s.Tracking.ReloadROI(cameraID)
	}
	w.WriteHeader(http.StatusNoContent)
}
