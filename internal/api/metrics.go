package api

import (
	"net/http"

	"flowguard/internal/metrics"
)

// handleMetrics implements GET /api/metrics: per-camera counts over
// ?hours= (default 24h), spec §4.6 "Per-camera counts".
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if h, _, err := metrics.ParseTimeRange(raw + "h"); err == nil {
			hours = h
		}
	}
	counts, err := s.Metrics.CameraCounts(hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleMetricsSummary implements GET /api/metrics/summary?camera_id=&timeRange=.
func (s *Server) handleMetricsSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.Metrics.Summarize(q.Get("camera_id"), q.Get("timeRange"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleMetricsDaily implements GET /api/metrics/daily?camera_id=: the
// hourly time series over the trailing 24h (spec §4.6 "Heatmap/time
// series" outputs).
func (s *Server) handleMetricsDaily(w http.ResponseWriter, r *http.Request) {
	cameraID := r.URL.Query().Get("camera_id")
	if cameraID == "" {
		writeError(w, http.StatusBadRequest, "camera_id is required")
		return
	}
	points, err := s.Metrics.TimeSeries(cameraID, 24)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// handleAnalyticsCompare implements GET /api/analytics/compare?hours=: a
// side-by-side per-camera counts comparison, reusing CameraCounts.
func (s *Server) handleAnalyticsCompare(w http.ResponseWriter, r *http.Request) {
	s.handleMetrics(w, r)
}

// handleAnalyticsTimeSeries implements GET
// /api/analytics/time-series?camera_id=&hours=.
func (s *Server) handleAnalyticsTimeSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cameraID := q.Get("camera_id")
	if cameraID == "" {
		writeError(w, http.StatusBadRequest, "camera_id is required")
		return
	}
	hours := 24
	if raw := q.Get("hours"); raw != "" {
		if h, _, err := metrics.ParseTimeRange(raw + "h"); err == nil {
			hours = h
		}
	}
	points, err := s.Metrics.TimeSeries(cameraID, hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, points)
}
