package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"flowguard/internal/auth"
	"flowguard/internal/metrics"
	"flowguard/internal/snapshot"
	"flowguard/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	snaps, err := snapshot.New(t.TempDir())
	require.NoError(t, err)

	agg := metrics.New(st, nil, false)
	authenticator := auth.NewAuthenticator(auth.Config{}) // Enabled: false, routes stay open
	srv := New(st, nil, nil, agg, snaps, nil, nil, authenticator)
	return srv, st
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetCamera(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/cameras", cameraPayload{ID: "cam1", Source: "/dev/video0", Name: "Front Door"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/cameras/cam1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got cameraPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "cam1", got.ID)
	require.Equal(t, "Front Door", got.Name)
}

func TestGetCameraNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/cameras/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCamerasEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/cameras", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestSetAndClearROI(t *testing.T) {
	srv, st := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/cameras/cam1/roi", roiPayload{X1: 10, Y1: 10, X2: 100, Y2: 100, EntryDirection: "ltr"})
	require.Equal(t, http.StatusOK, rec.Code)

	roi, err := st.GetROI("cam1")
	require.NoError(t, err)
	require.Equal(t, "ltr", roi.EntryDirection)

	rec = doJSON(t, router, http.MethodPost, "/api/cameras/cam1/roi/clear", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err = st.GetROI("cam1")
	require.Equal(t, store.ErrNotFound, err)
}

func TestSetROIRejectsDegenerateRectangle(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/cameras/cam1/roi", roiPayload{X1: 50, Y1: 50, X2: 10, Y2: 10, EntryDirection: "ltr"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListEventsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestListEventsReturnsWrittenEvent(t *testing.T) {
	srv, st := newTestServer(t)
	_, err := st.WriteEvent(store.DetectionEvent{EventType: store.EventEntry, CameraID: sql.NullString{String: "cam1", Valid: true}})
	require.NoError(t, err)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/events?camera_id=cam1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []eventPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	require.Equal(t, "entry", events[0].EventType)
}

func TestMetricsSummaryWithNoData(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/metrics/summary?timeRange=24h", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary metrics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, 0, summary.TotalDetections)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSnapshotImageRejectsPathTraversal(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/snapshot-image/cam1/..", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginDisabledByDefault(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/auth/login", loginRequest{Username: "admin", Password: "x"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
