package tracking

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"

	"flowguard/internal/detector"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestDrawDetectionOverlayProducesDecodableJPEG(t *testing.T) {
	frame := encodeTestJPEG(t, 640, 480)
	annotated := drawDetectionOverlay(frame, detector.BBox{100, 100, 300, 300}, 0.87, 0, 0)

	img, err := jpeg.Decode(bytes.NewReader(annotated))
	require.NoError(t, err)
	require.Equal(t, 640, img.Bounds().Dx())
	require.Equal(t, 480, img.Bounds().Dy())
}

func TestDrawDetectionOverlayFallsBackOnUndecodableInput(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02}
	out := drawDetectionOverlay(garbage, detector.BBox{0, 0, 10, 10}, 0.5, 0, 0)
	require.Equal(t, garbage, out)
}

func TestDrawDetectionOverlayClampsOutOfBoundsBox(t *testing.T) {
	frame := encodeTestJPEG(t, 64, 48)
	require.NotPanics(t, func() {
		drawDetectionOverlay(frame, detector.BBox{-50, -50, 500, 500}, 0.5, 0, 0)
	})
}
