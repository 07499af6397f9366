// Package capture implements the Frame Source (spec §4.1): one instance
// per camera, continuously producing the most recent decoded frame behind
// a freshest-frame, single-slot mailbox.
//
// Grounded on marcopennelli-orbo/internal/pipeline/frame_provider.go and
// internal/stream/mjpeg.go's captureFFmpeg/extractJPEGFrame. The teacher
// uses small buffered pub/sub channels with drop-newest-on-full semantics;
// this package instead guards a single *Frame pointer with a mutex
// (drop-oldest, producer never blocks) and keeps the channel idiom only
// for the "a new frame arrived" doorbell notification.
package capture

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"flowguard/internal/logging"
)

// State is a Frame Source lifecycle state (spec §4.1).
type State string

const (
	StateIdle         State = "idle"
	StateOpening      State = "opening"
	StateWarmUp       State = "warmup"
	StateStreaming    State = "streaming"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Kind discriminates the source descriptor (spec §4.1).
type Kind string

const (
	KindUSB       Kind = "usb"
	KindIPCamera  Kind = "ip"
	KindVideoFile Kind = "file"
)

var videoFileExts = []string{".mp4", ".avi", ".mov", ".mkv"}

// ClassifyKind discriminates a source descriptor per spec §4.1.
func ClassifyKind(source string) Kind {
	lower := strings.ToLower(source)
	for _, ext := range videoFileExts {
		if strings.HasSuffix(lower, ext) {
			return KindVideoFile
		}
	}
	if strings.HasPrefix(lower, "rtsp://") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return KindIPCamera
	}
	return KindUSB
}

// IsNumericDeviceIndex reports whether source is a bare integer (coerced to
// a /dev/video<N> device index per spec §4.2 "numeric strings are coerced
// to integer device indices").
func IsNumericDeviceIndex(source string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(source))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Frame is one decoded still, JPEG-encoded (matching the teacher's
// MJPEG/ffmpeg pipeline's wire representation end to end).
type Frame struct {
	Data      []byte
	CapturedAt time.Time
}

// Config configures a Source's lifecycle timings (spec §4.1, defaults as
// specified).
type Config struct {
	Width                   int
	Height                  int
	FPS                     int
	WarmUpDuration          time.Duration // default 10s, USB only
	ReconnectBackoff        time.Duration // default 3s
	MaxRetries              int           // default 10 (Reconnecting loop bound)
	MaxConsecutiveFailures  int           // default 50 (post-warmup)
	MaxReconnectionAttempts int           // default 15 (open-failure bound, spec §4.1 failure semantics)
	StopGrace               time.Duration // default 2s
}

func (c Config) withDefaults() Config {
	if c.WarmUpDuration <= 0 {
		c.WarmUpDuration = 10 * time.Second
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 3 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 50
	}
	if c.MaxReconnectionAttempts <= 0 {
		c.MaxReconnectionAttempts = 15
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 2 * time.Second
	}
	if c.FPS <= 0 {
		c.FPS = 15
	}
	return c
}

// Status is the structured status exposed alongside latest() (spec §4.1
// contract: "a structured status (current effective FPS, warm-up state)").
type Status struct {
	State         State
	EffectiveFPS  float64
	WarmingUp     bool
	RetryCount    int
	LastError     string
}

// producer is the capability a Source delegates actual decoding to — an
// ffmpeg subprocess for every Kind (USB/IP/file), grounded uniformly on
// the teacher's captureFFmpeg.
type producer interface {
	// run blocks, invoking emit for each decoded frame, until ctx is
	// cancelled or the source is permanently exhausted. A nil error with
	// ctx still live means video-file EOF (not a failure, spec §4.1).
	//
	// warmUntil is the deadline before which transient read failures are
	// silently tolerated (zero value: no tolerance window, i.e. non-USB
	// kinds). maxConsecutiveFailures bounds how many transient failures in
	// a row are tolerated once past warmUntil before run returns an error.
	run(ctx context.Context, emit func([]byte), warmUntil time.Time, maxConsecutiveFailures int) error
}

// Source is one Frame Source instance (spec §4.1).
type Source struct {
	id     string
	desc   string
	kind   Kind
	cfg    Config
	log    *logging.Logger

	mu     sync.Mutex
	state  State
	lastErr string
	retries int

	frameMu sync.Mutex
	frame   *Frame
	doorbell chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Source for the given camera id and source descriptor.
func New(id, source string, cfg Config) *Source {
	return &Source{
		id:       id,
		desc:     source,
		kind:     ClassifyKind(source),
		cfg:      cfg.withDefaults(),
		log:      logging.New("capture").WithField("camera_id", id),
		state:    StateIdle,
		doorbell: make(chan struct{}, 1),
	}
}

// Kind reports the discriminated source kind.
func (s *Source) Kind() Kind { return s.kind }

// Start transitions Idle -> Opening -> (WarmUp ->) Streaming, or into
// Reconnecting/Failed on open failure (spec §4.1). Non-blocking: the
// producer runs in its own goroutine.
func (s *Source) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateOpening
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(runCtx)
}

// Stop releases the producer within the configured grace period (spec
// §4.1: "ordered release within 2s; producer thread exit").
func (s *Source) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		select {
		case <-done:
		case <-time.After(s.cfg.StopGrace):
			s.log.Warn("capture: stop grace period exceeded")
		}
	}
	s.setState(StateIdle)
}

// IsActive reports whether the source is currently Streaming.
func (s *Source) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateStreaming
}

// Status returns the structured status (spec §4.1 contract).
func (s *Source) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:        s.state,
		EffectiveFPS: float64(s.cfg.FPS),
		WarmingUp:    s.state == StateWarmUp,
		RetryCount:   s.retries,
		LastError:    s.lastErr,
	}
}

// Latest returns a copy of the most recently produced frame, or nil if
// none has arrived yet. Readers never block the producer (spec §4.1
// freshest-frame buffer).
func (s *Source) Latest() *Frame {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.frame == nil {
		return nil
	}
	cp := *s.frame
	data := make([]byte, len(s.frame.Data))
	copy(data, s.frame.Data)
	cp.Data = data
	return &cp
}

// NotifyChan returns the doorbell channel: a non-blocking, size-1 signal
// fired whenever a new frame replaces the mailbox slot. Readers that want
// to wait for freshness rather than poll select on this.
func (s *Source) NotifyChan() <-chan struct{} { return s.doorbell }

func (s *Source) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// endWarmUpAfter flips WarmUp -> Streaming once the tolerance window
// elapses, unless the state has already moved on (e.g. a failure already
// forced Reconnecting) or ctx was cancelled first.
func (s *Source) endWarmUpAfter(ctx context.Context, until time.Time) {
	select {
	case <-time.After(time.Until(until)):
	case <-ctx.Done():
		return
	}
	s.mu.Lock()
	if s.state == StateWarmUp {
		s.state = StateStreaming
	}
	s.mu.Unlock()
}

func (s *Source) publish(data []byte) {
	s.frameMu.Lock()
	s.frame = &Frame{Data: data, CapturedAt: time.Now()}
	s.frameMu.Unlock()

	select {
	case s.doorbell <- struct{}{}:
	default:
	}
}

// runLoop drives the full lifecycle state machine (spec §4.1).
func (s *Source) runLoop(ctx context.Context) {
	defer close(s.done)

	openAttempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		openAttempts++
		p := newFFmpegProducer(s.desc, s.kind, s.cfg)

		// The producer starts immediately; WarmUp is a tolerance window
		// layered on top of the same running stream (spec §4.1: "consecutive
		// read failures are counted; during WarmUp they are silently
		// tolerated"), not a delay before it. USB-only per spec; other kinds
		// go straight to Streaming.
		var warmUntil time.Time
		if s.kind == KindUSB {
			s.setState(StateWarmUp)
			warmUntil = time.Now().Add(s.cfg.WarmUpDuration)
			go s.endWarmUpAfter(ctx, warmUntil)
		} else {
			s.setState(StateStreaming)
		}

		err := p.run(ctx, s.publish, warmUntil, s.cfg.MaxConsecutiveFailures)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Video-file EOF: reopen from start, not a failure (spec §4.1).
			openAttempts = 0
			continue
		}

		s.mu.Lock()
		s.lastErr = err.Error()
		s.retries++
		retries := s.retries
		s.mu.Unlock()

		if openAttempts >= s.cfg.MaxReconnectionAttempts {
			s.log.WithField("attempts", openAttempts).Error("capture: max reconnection attempts exceeded, marking Failed")
			s.setState(StateFailed)
			return
		}

		s.setState(StateReconnecting)
		s.log.WithError(err).WithField("retry", retries).Warn("capture: reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectBackoff):
		}

		if retries >= s.cfg.MaxRetries && s.kind != KindVideoFile {
			s.log.Error("capture: max retries exceeded, marking Failed")
			s.setState(StateFailed)
			return
		}
	}
}
