package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWebhookEmitInjectsTimestampAndPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var got Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.False(t, got.Timestamp.IsZero(), "zero timestamp must be injected before posting")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	err := wh.Emit(context.Background(), Event{Type: "entry", CameraID: "cam1", Payload: map[string]interface{}{}})
	require.NoError(t, err)
}

func TestWebhookEmitNon2xxReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	err := wh.Emit(context.Background(), Event{Type: "exit", CameraID: "cam1"})
	require.Error(t, err)
}

func TestMultiEmitContinuesPastFailure(t *testing.T) {
	var okHits int32
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&okHits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failSrv.Close()

	m := Multi{Ports: []Port{NewWebhook(failSrv.URL), NewWebhook(okSrv.URL)}}
	err := m.Emit(context.Background(), Event{Type: "entry", CameraID: "cam1"})
	require.Error(t, err, "first failing adapter's error is surfaced")
	require.Equal(t, int32(1), atomic.LoadInt32(&okHits), "adapter after the failing one still receives the event")
}

func TestTelegramCooldownSuppressesDuplicate(t *testing.T) {
	tg := NewTelegram(TelegramConfig{BotToken: "tok", ChatID: "1", CooldownSeconds: 60})
	require.True(t, tg.allow("entry"))
	require.False(t, tg.allow("entry"), "second call within cooldown window must be suppressed")
	require.True(t, tg.allow("exit"), "distinct event types have independent cooldowns")
}
