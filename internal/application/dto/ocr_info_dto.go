package dto

// OCRInfoDTO описывает возможности распознавания текста
type OCRInfoDTO struct {
	OCR OCRStateDTO `json:"ocr"`
}

// OCRStateDTO содержит флаг доступности и списки языков
type OCRStateDTO struct {
	Enabled bool        `json:"enabled"`
	Langs   OCRLangsDTO `json:"langs"`
}

// OCRLangsDTO содержит языки по умолчанию и все доступные языки
type OCRLangsDTO struct {
	Default   []string `json:"default"`
	Available []string `json:"available"`
}

// NewOCRInfoDTO создает DTO; nil списки заменяются пустыми для JSON
func NewOCRInfoDTO(enabled bool, defaultLangs, availableLangs []string) *OCRInfoDTO {
	if defaultLangs == nil {
		defaultLangs = []string{}
	}
	if availableLangs == nil {
		availableLangs = []string{}
	}
	return &OCRInfoDTO{
		OCR: OCRStateDTO{
			Enabled: enabled,
			Langs: OCRLangsDTO{
				Default:   defaultLangs,
				Available: availableLangs,
			},
		},
	}
}
