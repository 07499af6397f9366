// Package config loads runtime parameters from YAML + environment via
// viper, with optional hot-reload through fsnotify.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Camera mirrors the recognized camera.* configuration keys (spec §6).
type Camera struct {
	DeviceID string `mapstructure:"device_id"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	FPS      int    `mapstructure:"fps"`
}

// Detection mirrors the recognized detection.* configuration keys (spec §6).
type Detection struct {
	ModelPath           string  `mapstructure:"model_path"`
	Endpoint            string  `mapstructure:"endpoint"`
	Transport           string  `mapstructure:"transport"` // "http" (default) or "grpc"
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	IdleFPS             float64 `mapstructure:"idle_fps"`
	ActiveFPS           float64 `mapstructure:"active_fps"`
	PersonClassID       int     `mapstructure:"person_class_id"`
	DirectionThreshold  float64 `mapstructure:"direction_threshold"`
}

// Database mirrors database.* keys.
type Database struct {
	Path string `mapstructure:"path"`
}

// Snapshots mirrors snapshots.* keys.
type Snapshots struct {
	Root            string `mapstructure:"root"`
	MaxFiles        int    `mapstructure:"max_files"`
	CleanupInterval int    `mapstructure:"cleanup_interval"`
}

// API mirrors api.* keys.
type API struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// Logging mirrors logging.* keys.
type Logging struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	BackupCount int   `mapstructure:"backup_count"`
}

// Auth mirrors auth.* keys — ambient, not named by spec.md but required to
// run the mutating HTTP routes spec.md §6.2 describes. Username/Password
// configure the single operator account; Secret signs JWTs and JWTExpiry
// bounds how long an issued token stays valid.
type Auth struct {
	Enabled    bool          `mapstructure:"enabled"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Secret     string        `mapstructure:"secret"`
	JWTExpiry  time.Duration `mapstructure:"jwt_expiry"`
}

// GRPC mirrors grpc.* keys for the Detector gRPC adapter.
type GRPC struct {
	DetectorEndpoint string `mapstructure:"detector_endpoint"`
}

// Metrics mirrors metrics.* keys — resolves the synthetic-padding Open
// Question (spec.md §9).
type Metrics struct {
	SyntheticPaddingEnabled bool `mapstructure:"synthetic_padding_enabled"`
}

// Notify mirrors notify.* keys for the Notification Port's webhook and
// Telegram adapters (spec §6.3).
type Notify struct {
	WebhookURL        string `mapstructure:"webhook_url"`
	TelegramBotToken  string `mapstructure:"telegram_bot_token"`
	TelegramChatID    string `mapstructure:"telegram_chat_id"`
	TelegramCooldownS int    `mapstructure:"telegram_cooldown_seconds"`
}

// Config is the root configuration object.
type Config struct {
	Camera    Camera    `mapstructure:"camera"`
	Detection Detection `mapstructure:"detection"`
	Database  Database  `mapstructure:"database"`
	Snapshots Snapshots `mapstructure:"snapshots"`
	API       API       `mapstructure:"api"`
	Logging   Logging   `mapstructure:"logging"`
	Auth      Auth      `mapstructure:"auth"`
	GRPC      GRPC      `mapstructure:"grpc"`
	Metrics   Metrics   `mapstructure:"metrics"`
	Notify    Notify    `mapstructure:"notify"`
}

func defaults() Config {
	return Config{
		Camera: Camera{Width: 640, Height: 480, FPS: 15},
		Detection: Detection{
			Endpoint:            "http://localhost:8000",
			Transport:           "http",
			ConfidenceThreshold: 0.5,
			IdleFPS:             1,
			ActiveFPS:           5,
			PersonClassID:       0,
			DirectionThreshold:  0.2,
		},
		Database:  Database{Path: "flowguard.db"},
		Snapshots: Snapshots{Root: "snapshots", MaxFiles: 1000, CleanupInterval: 3600},
		API:       API{Host: "0.0.0.0", Port: 8080},
		Logging:   Logging{Level: "info", Format: "text", MaxSizeMB: 100, BackupCount: 5},
		Auth:      Auth{Enabled: false, Username: "admin", JWTExpiry: 24 * time.Hour},
		Metrics:   Metrics{SyntheticPaddingEnabled: false},
		Notify:    Notify{TelegramCooldownS: 30},
	}
}

// Manager loads and optionally hot-reloads configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	current   Config
	callbacks []func(Config)
	watcher   *fsnotify.Watcher
}

// NewManager constructs a Manager with defaults applied.
func NewManager() *Manager {
	return &Manager{current: defaults()}
}

// Load reads configPath (YAML) merged over defaults and environment
// variables prefixed FLOWGUARD_ (dots replaced by underscores, matching the
// ambient-stack grounding in DESIGN.md).
func (m *Manager) Load(configPath string) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FLOWGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaults()
	setDefaultsFromStruct(v, def)

	if err := v.ReadInConfig(); err != nil && !isFileNotFound(err) {
		return fmt.Errorf("config: read %s: %w", configPath, err)
	}

	cfg := def
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	m.mu.Lock()
	m.v = v
	m.current = cfg
	m.mu.Unlock()
	return nil
}

func isFileNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}

func setDefaultsFromStruct(v *viper.Viper, cfg Config) {
	v.SetDefault("camera.device_id", cfg.Camera.DeviceID)
	v.SetDefault("camera.width", cfg.Camera.Width)
	v.SetDefault("camera.height", cfg.Camera.Height)
	v.SetDefault("camera.fps", cfg.Camera.FPS)
	v.SetDefault("detection.model_path", cfg.Detection.ModelPath)
	v.SetDefault("detection.endpoint", cfg.Detection.Endpoint)
	v.SetDefault("detection.transport", cfg.Detection.Transport)
	v.SetDefault("detection.confidence_threshold", cfg.Detection.ConfidenceThreshold)
	v.SetDefault("detection.idle_fps", cfg.Detection.IdleFPS)
	v.SetDefault("detection.active_fps", cfg.Detection.ActiveFPS)
	v.SetDefault("detection.person_class_id", cfg.Detection.PersonClassID)
	v.SetDefault("detection.direction_threshold", cfg.Detection.DirectionThreshold)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("snapshots.root", cfg.Snapshots.Root)
	v.SetDefault("snapshots.max_files", cfg.Snapshots.MaxFiles)
	v.SetDefault("snapshots.cleanup_interval", cfg.Snapshots.CleanupInterval)
	v.SetDefault("api.host", cfg.API.Host)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.debug", cfg.API.Debug)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.backup_count", cfg.Logging.BackupCount)
	v.SetDefault("auth.enabled", cfg.Auth.Enabled)
	v.SetDefault("auth.username", cfg.Auth.Username)
	v.SetDefault("auth.password", cfg.Auth.Password)
	v.SetDefault("auth.secret", cfg.Auth.Secret)
	v.SetDefault("auth.jwt_expiry", cfg.Auth.JWTExpiry)
	v.SetDefault("grpc.detector_endpoint", cfg.GRPC.DetectorEndpoint)
	v.SetDefault("metrics.synthetic_padding_enabled", cfg.Metrics.SyntheticPaddingEnabled)
	v.SetDefault("notify.webhook_url", cfg.Notify.WebhookURL)
	v.SetDefault("notify.telegram_bot_token", cfg.Notify.TelegramBotToken)
	v.SetDefault("notify.telegram_chat_id", cfg.Notify.TelegramChatID)
	v.SetDefault("notify.telegram_cooldown_seconds", cfg.Notify.TelegramCooldownS)
}

// Current returns a snapshot of the active configuration.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnChange registers a callback invoked after a successful hot reload.
func (m *Manager) OnChange(cb func(Config)) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, cb)
	m.mu.Unlock()
}

// WatchForChanges starts an fsnotify watch on the loaded config file,
// reloading and notifying callbacks on write events. Mirrors the teacher
// pack's conditional hot-reload pattern (DESIGN.md).
func (m *Manager) WatchForChanges(configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watcher: %w", err)
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watch %s: %w", configPath, err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.Load(configPath); err != nil {
					continue
				}
				m.mu.RLock()
				cbs := append([]func(Config){}, m.callbacks...)
				cur := m.current
				m.mu.RUnlock()
				for _, cb := range cbs {
					cb(cur)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Close releases the fsnotify watcher, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
