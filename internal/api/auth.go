package api

import (
	"encoding/json"
	"net/http"

	"flowguard/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// handleLogin implements POST /api/auth/login, issuing a bearer JWT for the
// mutating routes' Authorization header (spec §6.2 ambient auth note).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.Auth == nil || !s.Auth.IsEnabled() {
		writeError(w, http.StatusServiceUnavailable, "authentication is disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := s.Auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
