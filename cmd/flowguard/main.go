// Command flowguard wires every component of the multi-camera presence and
// directional-flow analytics engine into a single runnable process.
//
// Grounded on marcopennelli-orbo/cmd/orbo/main.go's startup shape: flag
// parsing, dependency construction in declared order, an errc channel fed
// by both the OS signal handler and server goroutines, and a
// cancel-then-wg.Wait graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"flowguard/internal/api"
	"flowguard/internal/auth"
	"flowguard/internal/capture"
	"flowguard/internal/config"
	"flowguard/internal/detector"
	"flowguard/internal/eventbus"
	"flowguard/internal/logging"
	"flowguard/internal/metrics"
	"flowguard/internal/notify"
	"flowguard/internal/registry"
	"flowguard/internal/snapshot"
	"flowguard/internal/store"
	"flowguard/internal/tracking"
	"flowguard/internal/ws"
)

func main() {
	configPathF := flag.String("config", "flowguard.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfgManager := config.NewManager()
	if err := cfgManager.Load(*configPathF); err != nil {
		fmt.Fprintf(os.Stderr, "flowguard: load config: %v\n", err)
		os.Exit(1)
	}
	cfg := cfgManager.Current()

	if err := logging.Setup(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Console: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "flowguard: setup logging: %v\n", err)
		os.Exit(1)
	}
	log := logging.New("main")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Error("flowguard: open event store")
		os.Exit(1)
	}
	defer st.Close()
	log.WithField("path", cfg.Database.Path).Info("event store opened")

	snaps, err := snapshot.New(cfg.Snapshots.Root)
	if err != nil {
		log.WithError(err).Error("flowguard: open snapshot store")
		os.Exit(1)
	}
	sweeper := snapshot.NewSweeper(snaps, time.Duration(cfg.Snapshots.CleanupInterval)*time.Second, cfg.Snapshots.MaxFiles)

	det, err := buildDetector(cfg.Detection, cfg.GRPC)
	if err != nil {
		log.WithError(err).Error("flowguard: construct detector")
		os.Exit(1)
	}

	notifier := buildNotifier(cfg.Notify, log)

	authenticator := auth.NewAuthenticator(auth.Config{
		Enabled:   cfg.Auth.Enabled,
		Username:  cfg.Auth.Username,
		Password:  cfg.Auth.Password,
		Secret:    cfg.Auth.Secret,
		JWTExpiry: cfg.Auth.JWTExpiry,
	})
	if authenticator.IsEnabled() {
		log.Info("authentication enabled")
	} else {
		log.Info("authentication disabled (set auth.enabled: true to enable)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	captureCfg := capture.Config{Width: cfg.Camera.Width, Height: cfg.Camera.Height, FPS: cfg.Camera.FPS}
	reg := registry.New(ctx, captureCfg)

	cpuSampler := tracking.NewCPULoadSampler()
	bus := eventbus.New()
	rate := tracking.RateConfig{IdleFPS: cfg.Detection.IdleFPS, ActiveFPS: cfg.Detection.ActiveFPS, PersonClassID: cfg.Detection.PersonClassID}
	trk := tracking.NewManager(det, st, snaps, notifier, bus, cpuSampler, rate)

	if err := restoreCameras(st, reg, trk, ctx, log); err != nil {
		log.WithError(err).Warn("flowguard: restore persisted cameras")
	}

	agg := metrics.New(st, reg, cfg.Metrics.SyntheticPaddingEnabled)
	hub := ws.NewHub()

	srv := api.New(st, reg, trk, agg, snaps, hub, bus, authenticator)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler: srv.Router(),
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); cpuSampler.Run(ctx) }()
	go func() { defer wg.Done(); sweeper.Run(ctx) }()
	go func() { defer wg.Done(); hub.Run(ctx, bus) }()

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("signal: %v", <-c)
	}()
	go func() {
		log.WithField("addr", httpServer.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	log.WithField("reason", <-errc).Info("shutting down")

	// Ordered shutdown (spec §5/§7): HTTP server, then Tracking workers,
	// then Frame Sources, then the Event Store (deferred above).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = httpServer.Shutdown(shutdownCtx)
	shutdownCancel()

	trk.StopAll()
	reg.StopAll()
	cancel()
	wg.Wait()

	log.Info("exited")
}

// buildDetector selects the Detector adapter by transport (spec §6.1).
func buildDetector(det config.Detection, grpcCfg config.GRPC) (detector.Port, error) {
	transport := det.Transport
	if transport == "" {
		transport = "http"
	}
	switch transport {
	case "grpc":
		endpoint := grpcCfg.DetectorEndpoint
		if endpoint == "" {
			endpoint = det.Endpoint
		}
		return detector.NewGRPCDetector(endpoint)
	default:
		return detector.NewHTTPDetector(det.Endpoint, det.ConfidenceThreshold), nil
	}
}

// buildNotifier fans out to every configured Notification Port adapter
// (spec §6.3). An empty configuration yields a no-op Multi.
func buildNotifier(cfg config.Notify, log *logging.Logger) notify.Port {
	var ports []notify.Port
	if cfg.WebhookURL != "" {
		ports = append(ports, notify.NewWebhook(cfg.WebhookURL))
		log.WithField("url", cfg.WebhookURL).Info("webhook notifications enabled")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		ports = append(ports, notify.NewTelegram(notify.TelegramConfig{
			BotToken:        cfg.TelegramBotToken,
			ChatID:          cfg.TelegramChatID,
			CooldownSeconds: cfg.TelegramCooldownS,
		}))
		log.Info("telegram notifications enabled")
	}
	return notify.Multi{Ports: ports}
}

// restoreCameras re-registers every persisted, enabled camera with the
// Camera Registry and starts its Tracking worker, so a process restart
// resumes monitoring without manual re-add (spec §4.2/§4.3 lifecycle).
func restoreCameras(st *store.Store, reg *registry.Registry, trk *tracking.Manager, ctx context.Context, log *logging.Logger) error {
	cameras, err := st.ListCameras()
	if err != nil {
		return err
	}
	for _, c := range cameras {
		if !c.Enabled {
			continue
		}
		if err := reg.Add(c.ID, c.Source, c.Name, true); err != nil {
			log.WithError(err).WithField("camera_id", c.ID).Warn("flowguard: restore camera failed")
			continue
		}
		entry, err := reg.Get(c.ID)
		if err != nil {
			continue
		}
		trk.StartCamera(ctx, c.ID, entry.FrameSource())
	}
	return nil
}
