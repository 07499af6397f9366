package tracking

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"flowguard/internal/detector"
)

var overlayColor = color.RGBA{R: 0, G: 255, B: 80, A: 255}

// drawDetectionOverlay decodes a birth-snapshot JPEG, draws the triggering
// detection's bounding box plus a "person NN%" label, and re-encodes it.
// Grounded in shape on marcopennelli-orbo/internal/stream/mjpeg.go's
// debug-overlay drawing (rectangle outline + basicfont label). Falls back
// to the original bytes on any decode error — the snapshot is still useful
// without the overlay (spec §4.3 failure semantics: log, don't block).
func drawDetectionOverlay(jpegData []byte, box detector.BBox, confidence float64, offsetX, offsetY float64) []byte {
	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return jpegData
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)

	x1 := int(box[0] + offsetX)
	y1 := int(box[1] + offsetY)
	x2 := int(box[2] + offsetX)
	y2 := int(box[3] + offsetY)
	drawRect(rgba, x1, y1, x2, y2, overlayColor)

	label := fmt.Sprintf("person %.0f%%", confidence*100)
	drawLabel(rgba, x1, y1-4, label)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, rgba, &jpeg.Options{Quality: 85}); err != nil {
		return jpegData
	}
	return out.Bytes()
}

// drawRect strokes a 2px-thick rectangle outline.
func drawRect(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	const thickness = 2
	b := img.Bounds()
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	x1, x2 = clamp(x1, b.Min.X, b.Max.X), clamp(x2, b.Min.X, b.Max.X)
	y1, y2 = clamp(y1, b.Min.Y, b.Max.Y), clamp(y2, b.Min.Y, b.Max.Y)

	hLine := func(y int) {
		for x := x1; x <= x2; x++ {
			for t := 0; t < thickness; t++ {
				img.Set(x, clamp(y+t, b.Min.Y, b.Max.Y-1), c)
			}
		}
	}
	vLine := func(x int) {
		for y := y1; y <= y2; y++ {
			for t := 0; t < thickness; t++ {
				img.Set(clamp(x+t, b.Min.X, b.Max.X-1), y, c)
			}
		}
	}
	hLine(y1)
	hLine(y2)
	vLine(x1)
	vLine(x2)
}

// drawLabel renders text above the box using the basic fixed-width face.
func drawLabel(img *image.RGBA, x, y int, label string) {
	if y < basicfont.Face7x13.Height {
		y = basicfont.Face7x13.Height
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(overlayColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
