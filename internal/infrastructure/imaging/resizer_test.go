package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestJPEGResizer_Thumbnail(t *testing.T) {
	resizer := NewJPEGResizer(service.NewPreviewSizer())
	source := encodeTestJPEG(t, 200, 100)

	tests := []struct {
		name       string
		maxWidth   int
		maxHeight  int
		wantWidth  int
		wantHeight int
	}{
		{name: "proportional box", maxWidth: 40, maxHeight: 20, wantWidth: 40, wantHeight: 20},
		{name: "width bound", maxWidth: 50, maxHeight: 100, wantWidth: 50, wantHeight: 25},
		{name: "height bound", maxWidth: 200, maxHeight: 10, wantWidth: 20, wantHeight: 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := resizer.Thumbnail(source, tc.maxWidth, tc.maxHeight, 80)
			if err != nil {
				t.Fatalf("Thumbnail() error = %v", err)
			}

			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("result is not a JPEG: %v", err)
			}
			if cfg.Width != tc.wantWidth || cfg.Height != tc.wantHeight {
				t.Fatalf("expected %dx%d, got %dx%d", tc.wantWidth, tc.wantHeight, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestJPEGResizer_Errors(t *testing.T) {
	resizer := NewJPEGResizer(service.NewPreviewSizer())

	if _, err := resizer.Thumbnail([]byte("not a jpeg"), 10, 10, 80); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := resizer.Thumbnail(encodeTestJPEG(t, 20, 20), 0, 10, 80); err == nil {
		t.Fatalf("expected box error")
	}
	if _, err := resizer.Thumbnail(encodeTestJPEG(t, 20, 20), 10, 10, 0); err == nil {
		t.Fatalf("expected quality error")
	}
}
