package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// videoFeedMinInterval caps streaming at ~20fps (spec §6.2 "≈20 fps cap"),
// grounded on marcopennelli-orbo/internal/stream/mjpeg.go's ServeHTTP, which
// this handler otherwise reuses (multipart boundary writing, flush-per-
// frame), adapted to read from the Frame Source's freshest-frame mailbox
// instead of the teacher's per-client buffered channel.
const videoFeedMinInterval = 50 * time.Millisecond

// handleVideoFeed implements GET /video_feed/{camera_id}: MJPEG multipart
// streaming of the camera's freshest decoded frames.
func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "camera_id")

	entry, err := s.Registry.Get(cameraID)
	if err != nil {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	source := entry.FrameSource()
	if source == nil {
		writeError(w, http.StatusConflict, "camera is not streaming")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var lastSent time.Time
	for {
		select {
		case <-r.Context().Done():
			return
		case <-source.NotifyChan():
		case <-time.After(time.Second):
			// Periodic wake-up so a stalled source doesn't hang the
			// connection open forever without ever checking ctx.Done.
		}

		if time.Since(lastSent) < videoFeedMinInterval {
			continue
		}
		frame := source.Latest()
		if frame == nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame.Data))
		if _, err := w.Write(frame.Data); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")
		flusher.Flush()
		lastSent = time.Now()
	}
}
