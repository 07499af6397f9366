package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"flowguard/internal/logging"
)

// ffmpegProducer decodes a source descriptor into a sequence of JPEG
// frames via an ffmpeg subprocess, grounded on
// marcopennelli-orbo/internal/stream/mjpeg.go's captureFFmpeg. USB, IP
// camera, and video-file sources are unified behind one subprocess
// invocation shape, differing only in the argument list built by
// ffmpegArgs.
type ffmpegProducer struct {
	source string
	kind   Kind
	cfg    Config
	log    *logging.Logger
}

func newFFmpegProducer(source string, kind Kind, cfg Config) *ffmpegProducer {
	return &ffmpegProducer{source: source, kind: kind, cfg: cfg, log: logging.New("capture.ffmpeg")}
}

// ffmpegArgs builds the argument list for the subprocess. Video files loop
// indefinitely and are paced to their declared FPS via -re (spec §4.1:
// "video file: end-of-stream -> reopen from start... frames are paced to
// the file's declared FPS").
func (p *ffmpegProducer) ffmpegArgs() []string {
	switch p.kind {
	case KindVideoFile:
		return []string{
			"-stream_loop", "-1",
			"-re",
			"-i", p.source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	case KindIPCamera:
		args := []string{}
		if len(p.source) >= 7 && p.source[:7] == "rtsp://" {
			args = append(args, "-rtsp_transport", "tcp")
		}
		args = append(args,
			"-i", p.source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-r", fmt.Sprintf("%d", p.cfg.FPS),
			"-q:v", "5",
			"-",
		)
		return args
	default: // KindUSB
		return []string{
			"-f", "v4l2",
			"-video_size", fmt.Sprintf("%dx%d", p.cfg.Width, p.cfg.Height),
			"-framerate", fmt.Sprintf("%d", p.cfg.FPS),
			"-i", p.source,
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "5",
			"-",
		}
	}
}

// withinWarmUp reports whether a transient read failure occurring right now
// falls inside the WarmUp tolerance window. A zero warmUntil means there is
// no window (non-USB kinds skip WarmUp entirely).
func withinWarmUp(warmUntil time.Time) bool {
	return !warmUntil.IsZero() && time.Now().Before(warmUntil)
}

// readRetryPause bounds how long a tolerated transient read failure waits
// before the next stdout.Read attempt, during WarmUp and post-WarmUp alike.
const readRetryPause = 50 * time.Millisecond

// run starts ffmpeg, reads its stdout, and calls emit for each decoded
// JPEG frame until ctx is cancelled or the stream ends. A nil return
// with no error means EOF (only reachable for video files, reopened by
// the caller's lifecycle loop); any other return is a failure that
// should trigger Reconnecting.
//
// Transient (non-EOF) read failures are spec §4.1's "consecutive read
// failures": silently tolerated while now is before warmUntil, otherwise
// counted and only fatal once they exceed maxConsecutiveFailures in a row.
// io.EOF always ends the subprocess's pipe and is never tolerated — ffmpeg
// itself has already exited by the time it is observed.
func (p *ffmpegProducer) run(ctx context.Context, emit func([]byte), warmUntil time.Time, maxConsecutiveFailures int) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", p.ffmpegArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("capture: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("capture: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("capture: start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			// ffmpeg's diagnostic chatter goes to stderr; consumed silently
			// to avoid filling the pipe buffer and stalling the process.
		}
	}()

	buf := make([]byte, 0, 1024*1024)
	chunk := make([]byte, 32*1024)
	consecutiveFailures := 0

	for {
		n, readErr := stdout.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				frame := extractJPEGFrame(&buf)
				if frame == nil {
					break
				}
				emit(frame)
			}
			consecutiveFailures = 0
		}
		if readErr != nil {
			if readErr == io.EOF {
				_ = cmd.Wait()
				wg.Wait()
				if p.kind == KindVideoFile {
					return nil
				}
				return fmt.Errorf("capture: ffmpeg stream ended unexpectedly")
			}

			if withinWarmUp(warmUntil) {
				p.log.WithError(readErr).Debug("capture: read failure tolerated during warm-up")
				select {
				case <-ctx.Done():
					_ = cmd.Wait()
					wg.Wait()
					return ctx.Err()
				case <-time.After(readRetryPause):
				}
				continue
			}

			consecutiveFailures++
			if consecutiveFailures <= maxConsecutiveFailures {
				p.log.WithError(readErr).WithField("consecutive_failures", consecutiveFailures).Warn("capture: transient read failure")
				select {
				case <-ctx.Done():
					_ = cmd.Wait()
					wg.Wait()
					return ctx.Err()
				case <-time.After(readRetryPause):
				}
				continue
			}

			_ = cmd.Wait()
			wg.Wait()
			return fmt.Errorf("capture: %d consecutive read failures: %w", consecutiveFailures, readErr)
		}
	}
}

// extractJPEGFrame scans for a complete FFD8..FFD9 JPEG frame in buf,
// consuming it (and anything preceding it) on success. Grounded verbatim
// on marcopennelli-orbo/internal/stream/mjpeg.go's extractJPEGFrame.
func extractJPEGFrame(buf *[]byte) []byte {
	b := *buf
	if len(b) < 4 {
		return nil
	}

	start := -1
	for i := 0; i < len(b)-1; i++ {
		if b[i] == 0xFF && b[i+1] == 0xD8 {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}

	end := -1
	for i := start + 2; i < len(b)-1; i++ {
		if b[i] == 0xFF && b[i+1] == 0xD9 {
			end = i + 2
			break
		}
	}
	if end == -1 {
		return nil
	}

	frame := make([]byte, end-start)
	copy(frame, b[start:end])
	*buf = b[end:]
	return frame
}
