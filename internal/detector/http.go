package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

// HTTPDetector adapts an external multipart-upload inference service to
// Port. Grounded on marcopennelli-orbo/internal/detection/gpu_detector.go's
// GPUDetector: multipart form upload, 30s cached health check.
type HTTPDetector struct {
	endpoint  string
	client    *http.Client
	threshold float64

	mu         sync.Mutex
	healthy    bool
	lastHealth time.Time
}

// NewHTTPDetector constructs an adapter targeting endpoint (e.g.
// "http://localhost:8090").
func NewHTTPDetector(endpoint string, confThreshold float64) *HTTPDetector {
	return &HTTPDetector{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: 5 * time.Second},
		threshold: confThreshold,
	}
}

// IsHealthy checks liveness, caching a positive result for 30s (grounded
// verbatim on GPUDetector.IsHealthy's cache window).
func (d *HTTPDetector) IsHealthy(ctx context.Context) bool {
	d.mu.Lock()
	if time.Since(d.lastHealth) < 30*time.Second && d.healthy {
		d.mu.Unlock()
		return true
	}
	d.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/health", nil)
	if err != nil {
		d.setHealthy(false)
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.setHealthy(false)
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK
	d.setHealthy(ok)
	return ok
}

func (d *HTTPDetector) setHealthy(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.healthy = ok
	if ok {
		d.lastHealth = time.Now()
	}
}

type httpDetectionRow struct {
	ClassID    int       `json:"class_id"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
	TrackID    *int      `json:"track_id"`
}

type httpDetectionResponse struct {
	Detections []httpDetectionRow `json:"detections"`
}

// DetectAndTrack uploads frame as multipart form data and parses the JSON
// detection list, propagating track_id (the field the teacher's adapter
// chain never carried through, see DESIGN.md).
func (d *HTTPDetector) DetectAndTrack(ctx context.Context, frame []byte) ([]Detection, error) {
	if !d.IsHealthy(ctx) {
		return nil, fmt.Errorf("detector: http endpoint %s unavailable", d.endpoint)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("detector: build multipart: %w", err)
	}
	if _, err := fw.Write(frame); err != nil {
		return nil, fmt.Errorf("detector: write frame: %w", err)
	}
	if err := mw.WriteField("conf_threshold", fmt.Sprintf("%f", d.threshold)); err != nil {
		return nil, fmt.Errorf("detector: write field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("detector: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("detector: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		d.setHealthy(false)
		return nil, fmt.Errorf("detector: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("detector: read response: %w", err)
	}

	var parsed httpDetectionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("detector: decode response: %w", err)
	}

	out := make([]Detection, 0, len(parsed.Detections))
	for _, row := range parsed.Detections {
		if row.TrackID == nil {
			continue // spec §4.3: detections without track_id are discarded
		}
		var bbox BBox
		for i := 0; i < 4 && i < len(row.BBox); i++ {
			bbox[i] = row.BBox[i]
		}
		out = append(out, Detection{
			ClassID:    row.ClassID,
			Confidence: row.Confidence,
			BBox:       bbox,
			TrackID:    row.TrackID,
		})
	}
	return out, nil
}
