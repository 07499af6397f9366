package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowguard/internal/registry"
	"flowguard/internal/store"
)

// cameraPayload is the request/response body shape for the camera CRUD
// routes (spec §6.2 "POST /api/cameras").
type cameraPayload struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Name    string `json:"name,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	FPS     int    `json:"fps,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

func cameraResponse(c store.Camera) cameraPayload {
	enabled := c.Enabled
	return cameraPayload{
		ID: c.ID, Source: c.Source, Name: c.Name,
		Width: c.Width, Height: c.Height, FPS: c.FPS,
		Enabled: &enabled,
	}
}

func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
	cams, err := s.Store.ListCameras()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]cameraPayload, 0, len(cams))
	for _, c := range cams {
		out = append(out, cameraResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateCamera registers a camera (spec §4.2 add semantics): probes
// the source via the Camera Registry before persisting it, so a bad source
// never lands a phantom row.
func (s *Server) handleCreateCamera(w http.ResponseWriter, r *http.Request) {
	var p cameraPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.ID == "" || p.Source == "" {
		writeError(w, http.StatusBadRequest, "id and source are required")
		return
	}
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}

	if s.Registry != nil {
		if err := s.Registry.Add(p.ID, p.Source, p.Name, enabled); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	cam := store.Camera{ID: p.ID, Source: p.Source, Name: p.Name, Width: p.Width, Height: p.Height, FPS: p.FPS, Enabled: enabled}
	if err := s.Store.UpsertCamera(cam); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, cameraResponse(cam))
}

func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "camera_id")
	cam, err := s.Store.GetCamera(id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cameraResponse(*cam))
}

// handleUpdateCamera renames/reconfigures a camera and toggles enabled,
// re-probing through the Registry only when the source descriptor changes
// (Registry.Add is a no-op for an identical source, spec §4.2).
func (s *Server) handleUpdateCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "camera_id")
	existing, err := s.Store.GetCamera(id)
	if err == store.ErrNotFound {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var p cameraPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	merged := *existing
	if p.Source != "" {
		merged.Source = p.Source
	}
	if p.Name != "" {
		merged.Name = p.Name
	}
	if p.Width > 0 {
		merged.Width = p.Width
	}
	if p.Height > 0 {
		merged.Height = p.Height
	}
	if p.FPS > 0 {
		merged.FPS = p.FPS
	}
	if p.Enabled != nil {
		merged.Enabled = *p.Enabled
	}

	if s.Registry != nil {
		if err := s.Registry.Add(merged.ID, merged.Source, merged.Name, merged.Enabled); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}
	if err := s.Store.UpsertCamera(merged); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cameraResponse(merged))
}

// handleDeleteCamera stops and removes a camera (spec §4.2 remove
// semantics) and its persisted row/ROI config.
func (s *Server) handleDeleteCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "camera_id")

	if s.Tracking != nil {
		s.Tracking.StopCamera(id)
	}
	if s.Registry != nil {
		if err := s.Registry.Remove(id); err != nil && err != registry.ErrNotFound {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := s.Store.DeleteCamera(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
