// Package api implements the HTTP/REST and MJPEG surface (spec §6.2):
// camera/ROI management, event and metrics queries, snapshot retrieval, and
// live MJPEG video — the runnable front door spec.md itself treats as
// out of scope but this specification brings in-repo.
//
// Router: go-chi/chi/v5, promoted from the teacher's indirect dependency
// set since the teacher's own goa-generated HTTP surface could not be
// reconstructed (DESIGN.md "Dropped teacher dependency"). Handlers are
// grounded per-file on their closest teacher analogue.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flowguard/internal/auth"
	"flowguard/internal/eventbus"
	fgmiddleware "flowguard/internal/middleware"
	"flowguard/internal/logging"
	"flowguard/internal/metrics"
	"flowguard/internal/registry"
	"flowguard/internal/snapshot"
	"flowguard/internal/store"
	"flowguard/internal/tracking"
	"flowguard/internal/ws"
)

// Server bundles every dependency the HTTP surface calls into. Handlers are
// methods on Server rather than free functions so they share these without
// package-level globals, mirroring the teacher's *srvc-per-service shape
// with a single combined service instead of goa's generated split.
type Server struct {
	Store     *store.Store
	Registry  *registry.Registry
	Tracking  *tracking.Manager
	Metrics   *metrics.Aggregator
	Snapshots *snapshot.Store
	Hub       *ws.Hub
	Bus       *eventbus.Bus
	Auth      *auth.Authenticator

	log *logging.Logger
}

// New constructs a Server. Any field may be the zero value in tests that
// only exercise a subset of routes.
func New(st *store.Store, reg *registry.Registry, trk *tracking.Manager, agg *metrics.Aggregator, snaps *snapshot.Store, hub *ws.Hub, bus *eventbus.Bus, authenticator *auth.Authenticator) *Server {
	return &Server{
		Store:     st,
		Registry:  reg,
		Tracking:  trk,
		Metrics:   agg,
		Snapshots: snaps,
		Hub:       hub,
		Bus:       bus,
		Auth:      authenticator,
		log:       logging.New("api"),
	}
}

// Router builds the chi.Mux with every route in spec §6.2's table mounted.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/auth/login", s.handleLogin)

	r.Get("/api/status", s.handleStatus)

	requireAuth := fgmiddleware.AuthMiddleware(s.Auth)

	r.Group(func(r chi.Router) {
		r.Get("/api/cameras", s.handleListCameras)
		r.With(requireAuth).Post("/api/cameras", s.handleCreateCamera)
		r.Get("/api/cameras/{camera_id}", s.handleGetCamera)
		r.With(requireAuth).Put("/api/cameras/{camera_id}", s.handleUpdateCamera)
		r.With(requireAuth).Delete("/api/cameras/{camera_id}", s.handleDeleteCamera)
		r.With(requireAuth).Post("/api/cameras/{camera_id}/roi", s.handleSetROI)
		r.With(requireAuth).Post("/api/cameras/{camera_id}/roi/clear", s.handleClearROI)
	})

	r.Get("/api/events", s.handleListEvents)
	r.Get("/api/detections/recent", s.handleRecentDetections)

	r.Get("/api/metrics", s.handleMetrics)
	r.Get("/api/metrics/summary", s.handleMetricsSummary)
	r.Get("/api/metrics/daily", s.handleMetricsDaily)
	r.Get("/api/analytics/compare", s.handleAnalyticsCompare)
	r.Get("/api/analytics/time-series", s.handleAnalyticsTimeSeries)

	r.Get("/api/snapshots/{camera_id}", s.handleListSnapshots)
	r.Get("/api/snapshot-image/{camera_id}/{file}", s.handleSnapshotImage)

	r.Get("/video_feed/{camera_id}", s.handleVideoFeed)

	if s.Hub != nil {
		r.Get("/ws/cameras/{camera_id}", ws.NewHandler(s.Hub).ServeHTTP)
	}

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.WithField("method", r.Method).WithField("path", r.URL.Path).Debug("api: request")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
