package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"flowguard/internal/capture"
	"flowguard/internal/config"
	"flowguard/internal/detector"
	"flowguard/internal/logging"
	"flowguard/internal/notify"
	"flowguard/internal/registry"
	"flowguard/internal/store"
	"flowguard/internal/tracking"
)

func TestBuildDetectorDefaultsToHTTP(t *testing.T) {
	det, err := buildDetector(config.Detection{Endpoint: "http://localhost:8000", ConfidenceThreshold: 0.5}, config.GRPC{})
	require.NoError(t, err)
	_, ok := det.(*detector.HTTPDetector)
	require.True(t, ok, "expected *detector.HTTPDetector for unset transport")
}

func TestBuildDetectorExplicitHTTP(t *testing.T) {
	det, err := buildDetector(config.Detection{Endpoint: "http://localhost:8000", Transport: "http", ConfidenceThreshold: 0.5}, config.GRPC{})
	require.NoError(t, err)
	_, ok := det.(*detector.HTTPDetector)
	require.True(t, ok)
}

func TestBuildNotifierEmptyConfigYieldsNoPorts(t *testing.T) {
	n := buildNotifier(config.Notify{}, logging.New("test"))
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	require.Empty(t, multi.Ports)
}

func TestBuildNotifierWebhookOnly(t *testing.T) {
	n := buildNotifier(config.Notify{WebhookURL: "http://example.invalid/hook"}, logging.New("test"))
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	require.Len(t, multi.Ports, 1)
	_, ok = multi.Ports[0].(*notify.Webhook)
	require.True(t, ok)
}

func TestBuildNotifierWebhookAndTelegram(t *testing.T) {
	n := buildNotifier(config.Notify{
		WebhookURL:        "http://example.invalid/hook",
		TelegramBotToken:  "token",
		TelegramChatID:    "chat",
		TelegramCooldownS: 30,
	}, logging.New("test"))
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	require.Len(t, multi.Ports, 2)
}

func TestBuildNotifierTelegramRequiresBothTokenAndChatID(t *testing.T) {
	n := buildNotifier(config.Notify{TelegramBotToken: "token"}, logging.New("test"))
	multi, ok := n.(notify.Multi)
	require.True(t, ok)
	require.Empty(t, multi.Ports, "telegram adapter must not be built without a chat id")
}

func TestRestoreCamerasSkipsEmptyStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	reg := registry.New(ctx, capture.Config{Width: 640, Height: 480, FPS: 15})
	trk := tracking.NewManager(nil, st, nil, nil, nil, tracking.NewCPULoadSampler(), tracking.RateConfig{})

	require.NoError(t, restoreCameras(st, reg, trk, ctx, logging.New("test")))
	require.Empty(t, reg.ListAll())
}

func TestRestoreCamerasSkipsDisabledCameras(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.UpsertCamera(store.Camera{ID: "cam1", Source: "/dev/video0", Name: "Lobby", Enabled: false}))

	ctx := context.Background()
	reg := registry.New(ctx, capture.Config{Width: 640, Height: 480, FPS: 15})
	trk := tracking.NewManager(nil, st, nil, nil, nil, tracking.NewCPULoadSampler(), tracking.RateConfig{})

	require.NoError(t, restoreCameras(st, reg, trk, ctx, logging.New("test")))
	require.Empty(t, reg.ListAll(), "disabled cameras must not be re-registered on restart")
}
