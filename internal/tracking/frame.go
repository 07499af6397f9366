package tracking

import (
	"bytes"
	"image"
	"image/jpeg"
)

// frameDimensions returns the native resolution of a JPEG-encoded frame.
// DecodeConfig avoids a full pixel decode for the common case where only
// the dimensions are needed for ROI scaling.
func frameDimensions(jpegData []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(jpegData))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// cropJPEG decodes frame, crops to rect (clamped to the decoded image
// bounds), and re-encodes as JPEG. If rect covers the whole frame, or
// decode fails, the original bytes are returned unchanged.
func cropJPEG(data []byte, rect Rect, width, height int) []byte {
	if rect.X1 <= 0 && rect.Y1 <= 0 && int(rect.X2) >= width && int(rect.Y2) >= height {
		return data
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return data
	}

	bounds := image.Rect(int(rect.X1), int(rect.Y1), int(rect.X2), int(rect.Y2)).Intersect(img.Bounds())
	if bounds.Empty() {
		return data
	}

	cropped := sub.SubImage(bounds)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, cropped, &jpeg.Options{Quality: 85}); err != nil {
		return data
	}
	return out.Bytes()
}
