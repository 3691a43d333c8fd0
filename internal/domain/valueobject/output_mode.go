package valueobject

// OutputMode определяет, во что превращается снапшот в ответе (Value Object)
type OutputMode int

const (
	// OutputRaw - исходные JPEG байты снапшота
	OutputRaw OutputMode = iota
	// OutputPreview - уменьшенная копия снапшота
	OutputPreview
	// OutputOCR - распознанный текст
	OutputOCR
)

// ResolveOutputMode выбирает ровно один режим по флагам запроса.
// OCR важнее превью, превью важнее исходного кадра
func ResolveOutputMode(ocr, preview bool) OutputMode {
	switch {
	case ocr:
		return OutputOCR
	case preview:
		return OutputPreview
	default:
		return OutputRaw
	}
}

// String возвращает строковое представление режима
func (m OutputMode) String() string {
	switch m {
	case OutputPreview:
		return "preview"
	case OutputOCR:
		return "ocr"
	default:
		return "raw"
	}
}

// ContentType возвращает MIME тип ответа для режима
func (m OutputMode) ContentType() string {
	if m == OutputOCR {
		return "text/plain"
	}
	return "image/jpeg"
}
