package valueobject

import "image"

// Unbounded означает, что граница области не задана
const Unbounded = -1

// CropRect описывает область распознавания текста (Value Object).
// Отрицательная координата означает "до края изображения"
type CropRect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// FullFrame возвращает область без ограничений
func FullFrame() CropRect {
	return CropRect{Left: Unbounded, Top: Unbounded, Right: Unbounded, Bottom: Unbounded}
}

// IsFullFrame сообщает, что ни одна граница не задана
func (c CropRect) IsFullFrame() bool {
	return c.Left < 0 && c.Top < 0 && c.Right < 0 && c.Bottom < 0
}

// Resolve переводит область в пиксельный прямоугольник внутри bounds.
// Второе значение false, если область пустая и нужно распознавать весь кадр
func (c CropRect) Resolve(bounds image.Rectangle) (image.Rectangle, bool) {
	if c.IsFullFrame() {
		return bounds, false
	}

	left := clampEdge(c.Left, bounds.Min.X, bounds.Min.X, bounds.Max.X)
	top := clampEdge(c.Top, bounds.Min.Y, bounds.Min.Y, bounds.Max.Y)
	right := clampEdge(c.Right, bounds.Max.X, bounds.Min.X, bounds.Max.X)
	bottom := clampEdge(c.Bottom, bounds.Max.Y, bounds.Min.Y, bounds.Max.Y)

	if right <= left || bottom <= top {
		return bounds, false
	}

	rect := image.Rect(left, top, right, bottom)
	return rect, rect != bounds
}

func clampEdge(value, fallback, lo, hi int) int {
	if value < 0 {
		return fallback
	}
	value += lo
	if value > hi {
		return hi
	}
	return value
}
