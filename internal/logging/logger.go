// Package logging provides a component-scoped structured logger built on
// logrus, with correlation IDs and rotating file output.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias for structured log fields.
type Fields = logrus.Fields

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// Config controls the shared logrus backend.
type Config struct {
	Level      string // debug|info|warn|error
	Format     string // json|text
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Console    bool
}

var (
	backend     *logrus.Logger
	backendOnce sync.Once
)

// Setup configures the shared logrus backend. Safe to call once at startup;
// subsequent calls are no-ops beyond the first (mirrors the teacher's
// singleton setup pattern).
func Setup(cfg Config) error {
	var err error
	backendOnce.Do(func() {
		backend = logrus.New()
		err = apply(backend, cfg)
	})
	return err
}

func apply(l *logrus.Logger, cfg Config) error {
	level, parseErr := logrus.ParseLevel(cfg.Level)
	if parseErr != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var writers []io.Writer
	if cfg.Console || cfg.File == "" {
		writers = append(writers, os.Stdout)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   cfg.Compress,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func ensureBackend() *logrus.Logger {
	backendOnce.Do(func() {
		backend = logrus.New()
		_ = apply(backend, Config{Level: "info", Format: "text", Console: true})
	})
	return backend
}

// Logger is a component-scoped, correlation-aware log handle.
type Logger struct {
	entry *logrus.Entry
}

// New returns a logger scoped to the given component name.
func New(component string) *Logger {
	return &Logger{entry: ensureBackend().WithField("component", component)}
}

// WithField returns a derived logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a derived logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithError returns a derived logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithCorrelationID returns a derived logger tagged with a correlation ID.
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{entry: l.entry.WithField("correlation_id", id)}
}

// FromContext extracts a correlation ID injected by WithContextCorrelationID.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContextCorrelationID stores a fresh correlation ID in the context.
func WithContextCorrelationID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(ctx, correlationIDKey, id), id
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Error(fmt.Sprintf(format, args...)) }

func (l *Logger) Debug(msg string) { l.entry.Debug(msg) }
func (l *Logger) Info(msg string)  { l.entry.Info(msg) }
func (l *Logger) Warn(msg string)  { l.entry.Warn(msg) }
func (l *Logger) Error(msg string) { l.entry.Error(msg) }
