package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/kvm-streamer-api/internal/application/dto"
	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// GetOCRInfoUseCase сообщает о доступности OCR и установленных языках
type GetOCRInfoUseCase struct {
	extractor port.TextExtractor
	logger    *logger.Logger
}

func NewGetOCRInfoUseCase(extractor port.TextExtractor, logger *logger.Logger) *GetOCRInfoUseCase {
	return &GetOCRInfoUseCase{
		extractor: extractor,
		logger:    logger,
	}
}

func (uc *GetOCRInfoUseCase) Execute(ctx context.Context) (*dto.OCRInfoDTO, error) {
	enabled := uc.extractor.IsAvailable()
	if !enabled {
		return dto.NewOCRInfoDTO(false, nil, nil), nil
	}

	defaultLangs, err := uc.extractor.GetDefaultLangs(ctx)
	if err != nil {
		uc.logger.Error("Failed to get default OCR langs", err)
		return nil, fmt.Errorf("failed to get default OCR langs: %w", err)
	}

	availableLangs, err := uc.extractor.GetAvailableLangs(ctx)
	if err != nil {
		uc.logger.Error("Failed to get available OCR langs", err)
		return nil, fmt.Errorf("failed to get available OCR langs: %w", err)
	}

	return dto.NewOCRInfoDTO(true, defaultLangs, availableLangs), nil
}
