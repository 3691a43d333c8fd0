package service

import (
	"fmt"
	"math"
)

// DefaultPreviewDivisor - во сколько раз уменьшается кадр, если размеры превью не заданы
const DefaultPreviewDivisor = 5

// PreviewSizer вычисляет размеры превью (Domain Service)
type PreviewSizer struct{}

// NewPreviewSizer создает новый PreviewSizer
func NewPreviewSizer() *PreviewSizer {
	return &PreviewSizer{}
}

// ResolveTarget приводит запрошенные размеры к ограничивающему прямоугольнику.
// Ноль означает "не задано"; результат никогда не превышает исходный кадр
func (s *PreviewSizer) ResolveTarget(srcWidth, srcHeight, maxWidth, maxHeight int) (int, int) {
	if maxWidth == 0 && maxHeight == 0 {
		return srcWidth / DefaultPreviewDivisor, srcHeight / DefaultPreviewDivisor
	}

	if maxWidth == 0 {
		maxWidth = srcWidth
	}
	if maxHeight == 0 {
		maxHeight = srcHeight
	}

	return min(maxWidth, srcWidth), min(maxHeight, srcHeight)
}

// IsPassthrough сообщает, что превью совпадает с исходным кадром
func (s *PreviewSizer) IsPassthrough(srcWidth, srcHeight, width, height int) bool {
	return width == srcWidth && height == srcHeight
}

// CheckDownscale проверяет, что целевой размер является настоящим уменьшением
func (s *PreviewSizer) CheckDownscale(srcWidth, srcHeight, width, height int) error {
	if width <= 0 || width > srcWidth {
		return fmt.Errorf("preview width %d is out of (0, %d]", width, srcWidth)
	}
	if height <= 0 || height > srcHeight {
		return fmt.Errorf("preview height %d is out of (0, %d]", height, srcHeight)
	}
	if s.IsPassthrough(srcWidth, srcHeight, width, height) {
		return fmt.Errorf("preview %dx%d is not smaller than the source", width, height)
	}
	return nil
}

// Fit вписывает кадр в прямоугольник boxWidth x boxHeight с сохранением пропорций.
// Кадр никогда не увеличивается, каждая сторона не меньше 1 пикселя
func (s *PreviewSizer) Fit(srcWidth, srcHeight, boxWidth, boxHeight int) (int, int) {
	if srcWidth <= boxWidth && srcHeight <= boxHeight {
		return srcWidth, srcHeight
	}

	scale := math.Min(float64(boxWidth)/float64(srcWidth), float64(boxHeight)/float64(srcHeight))
	width := int(math.Round(float64(srcWidth) * scale))
	height := int(math.Round(float64(srcHeight) * scale))

	width = max(1, min(width, boxWidth))
	height = max(1, min(height, boxHeight))
	return width, height
}
