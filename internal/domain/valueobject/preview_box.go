package valueobject

import "fmt"

// PreviewBox - ограничивающий прямоугольник и качество превью (Value Object)
type PreviewBox struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// String возвращает компактное представление для логов
func (b PreviewBox) String() string {
	return fmt.Sprintf("%dx%d@q%d", b.MaxWidth, b.MaxHeight, b.Quality)
}
