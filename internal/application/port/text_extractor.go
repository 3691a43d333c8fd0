package port

import (
	"context"
	"errors"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/valueobject"
)

// TextExtractor определяет интерфейс OCR движка (Port)
type TextExtractor interface {
	// IsAvailable сообщает, доступно ли распознавание
	IsAvailable() bool

	// GetDefaultLangs возвращает языки по умолчанию
	GetDefaultLangs(ctx context.Context) ([]string, error)

	// GetAvailableLangs возвращает все установленные языки
	GetAvailableLangs(ctx context.Context) ([]string, error)

	// Recognize распознает текст в области crop JPEG изображения data
	Recognize(ctx context.Context, data []byte, langs []string, crop valueobject.CropRect) (string, error)
}

// ErrTextExtractorUnavailable возвращается, когда OCR выключен или не установлен
var ErrTextExtractorUnavailable = errors.New("OCR is not available")
