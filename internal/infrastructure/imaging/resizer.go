package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"
)

// JPEGResizer decodes a JPEG frame, scales it down to fit a box and encodes it back.
type JPEGResizer struct {
	sizer  *service.PreviewSizer
	scaler draw.Scaler
}

// NewJPEGResizer creates a resizer using Catmull-Rom interpolation.
func NewJPEGResizer(sizer *service.PreviewSizer) *JPEGResizer {
	return &JPEGResizer{
		sizer:  sizer,
		scaler: draw.CatmullRom,
	}
}

// Thumbnail fits the image into maxWidth x maxHeight keeping the aspect ratio.
func (r *JPEGResizer) Thumbnail(data []byte, maxWidth, maxHeight, quality int) ([]byte, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("invalid thumbnail box %dx%d", maxWidth, maxHeight)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("invalid JPEG quality %d", quality)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := r.sizer.Fit(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	r.scaler.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
