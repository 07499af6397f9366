package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListSnapshots implements GET /api/snapshots/{camera_id}: the most
// recent snapshot file names for a camera (spec §6, §4.5 FIFO retention).
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	names, err := s.Snapshots.ListRecent(cameraID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// handleSnapshotImage implements GET /api/snapshot-image/{camera_id}/{file}:
// serves one snapshot JPEG, rejecting any path that escapes the camera's
// directory within the snapshots root with 403 (spec §6).
func (s *Server) handleSnapshotImage(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")
	file := chi.URLParam(r, "file")

	path, ok := s.Snapshots.IsSafePath(cameraID, file)
	if !ok {
		writeError(w, http.StatusForbidden, "invalid snapshot path")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, path)
}
