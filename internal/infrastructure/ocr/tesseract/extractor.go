package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"slices"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/semaphore"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/valueobject"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// Options configures the Tesseract text extractor.
type Options struct {
	Enabled       bool
	DefaultLangs  []string
	MaxConcurrent int
}

// Extractor recognizes text on snapshots using libtesseract through gosseract.
type Extractor struct {
	enabled      bool
	defaultLangs []string
	sem          *semaphore.Weighted

	clientFactory func() *gosseract.Client
	listLangs     func() ([]string, error)

	langsOnce sync.Once
	langs     []string
	langsErr  error

	logger *logger.Logger
}

// NewExtractor creates an extractor. A disabled extractor reports no languages and refuses to recognize.
func NewExtractor(opts Options, log *logger.Logger) *Extractor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if len(opts.DefaultLangs) == 0 {
		opts.DefaultLangs = []string{"eng"}
	}

	return &Extractor{
		enabled:       opts.Enabled,
		defaultLangs:  slices.Clone(opts.DefaultLangs),
		sem:           semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		clientFactory: gosseract.NewClient,
		listLangs:     gosseract.GetAvailableLanguages,
		logger:        log.With("component", "ocr"),
	}
}

func (e *Extractor) IsAvailable() bool {
	return e.enabled
}

func (e *Extractor) GetDefaultLangs(_ context.Context) ([]string, error) {
	if !e.enabled {
		return []string{}, nil
	}
	return slices.Clone(e.defaultLangs), nil
}

// GetAvailableLangs returns the installed traineddata languages, without the OSD pseudo language.
func (e *Extractor) GetAvailableLangs(_ context.Context) ([]string, error) {
	if !e.enabled {
		return []string{}, nil
	}

	e.langsOnce.Do(func() {
		langs, err := e.listLangs()
		if err != nil {
			e.langsErr = fmt.Errorf("failed to list tesseract languages: %w", err)
			return
		}
		filtered := make([]string, 0, len(langs))
		for _, lang := range langs {
			lang = strings.TrimSpace(lang)
			if lang != "" && lang != "osd" {
				filtered = append(filtered, lang)
			}
		}
		slices.Sort(filtered)
		e.langs = filtered
		e.logger.Info("Tesseract languages loaded", "langs", strings.Join(filtered, ","))
	})

	if e.langsErr != nil {
		return nil, e.langsErr
	}
	return slices.Clone(e.langs), nil
}

// Recognize runs OCR over the crop area of the JPEG frame. Empty langs means the default languages.
func (e *Extractor) Recognize(ctx context.Context, data []byte, langs []string, crop valueobject.CropRect) (string, error) {
	if !e.enabled {
		return "", port.ErrTextExtractorUnavailable
	}
	if len(langs) == 0 {
		langs = e.defaultLangs
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.sem.Release(1)

	imgData, err := cropImage(data, crop)
	if err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(imgData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func cropImage(data []byte, crop valueobject.CropRect) ([]byte, error) {
	if crop.IsFullFrame() {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode for crop: %w", err)
	}

	rect, ok := crop.Resolve(img.Bounds())
	if !ok {
		return data, nil
	}

	subImg, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image does not support sub-image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, subImg.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
