package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/valueobject"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// ErrSnapshotUnavailable возвращается, когда стример не отдал кадр
var ErrSnapshotUnavailable = errors.New("no snapshot available")

// TakeSnapshotCommand параметры запроса снапшота
type TakeSnapshotCommand struct {
	Save         bool
	Load         bool
	AllowOffline bool

	Mode valueobject.OutputMode

	// OCRLangs - сырой список языков; пустой означает языки по умолчанию
	OCRLangs string
	OCRCrop  valueobject.CropRect

	PreviewBox valueobject.PreviewBox
}

// SnapshotResponse тело и заголовки ответа на запрос снапшота
type SnapshotResponse struct {
	Mode        valueobject.OutputMode
	Body        []byte
	ContentType string
	Headers     []entity.Header
}

// TakeSnapshotUseCase снимает кадр и формирует из него текст, превью или JPEG
type TakeSnapshotUseCase struct {
	source      port.SnapshotSource
	extractor   port.TextExtractor
	previews    *PreviewGenerator
	sideEffects *SnapshotSideEffects
	metrics     port.DispatchMetrics
	logger      *logger.Logger
}

// NewTakeSnapshotUseCase создает новый use case. sideEffects и metrics могут быть nil
func NewTakeSnapshotUseCase(
	source port.SnapshotSource,
	extractor port.TextExtractor,
	previews *PreviewGenerator,
	sideEffects *SnapshotSideEffects,
	metrics port.DispatchMetrics,
	logger *logger.Logger,
) *TakeSnapshotUseCase {
	return &TakeSnapshotUseCase{
		source:      source,
		extractor:   extractor,
		previews:    previews,
		sideEffects: sideEffects,
		metrics:     metrics,
		logger:      logger,
	}
}

// Execute выполняет запрос снапшота
func (uc *TakeSnapshotUseCase) Execute(ctx context.Context, cmd TakeSnapshotCommand) (*SnapshotResponse, error) {
	// 1. Получаем кадр
	snapshot, err := uc.source.TakeSnapshot(ctx, cmd.Save, cmd.Load, cmd.AllowOffline)
	if err != nil {
		uc.logger.Error("Failed to take snapshot", err)
		return nil, fmt.Errorf("failed to take snapshot: %w", err)
	}
	if snapshot == nil {
		if uc.metrics != nil {
			uc.metrics.IncSnapshotUnavailable()
		}
		return nil, ErrSnapshotUnavailable
	}

	if cmd.Save && !cmd.Load {
		uc.sideEffects.SnapshotSaved(snapshot)
	}

	// 2. Формируем тело ответа
	var body []byte
	switch cmd.Mode {
	case valueobject.OutputOCR:
		text, err := uc.recognize(ctx, snapshot, cmd)
		if err != nil {
			return nil, err
		}
		body = []byte(text)

	case valueobject.OutputPreview:
		body, err = uc.previews.MakePreview(ctx, snapshot, cmd.PreviewBox)
		if err != nil {
			return nil, err
		}

	default:
		body = snapshot.Data()
	}

	return &SnapshotResponse{
		Mode:        cmd.Mode,
		Body:        body,
		ContentType: cmd.Mode.ContentType(),
		Headers:     snapshot.Headers(),
	}, nil
}

func (uc *TakeSnapshotUseCase) recognize(ctx context.Context, snapshot *entity.Snapshot, cmd TakeSnapshotCommand) (string, error) {
	available, err := uc.extractor.GetAvailableLangs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get OCR langs: %w", err)
	}

	langs, err := service.ValidStringList(cmd.OCRLangs, "OCR langs list", func(lang string) (string, error) {
		return service.CheckStringInList(lang, "OCR lang", available)
	})
	if err != nil {
		return "", err
	}

	text, err := uc.extractor.Recognize(ctx, snapshot.Data(), langs, cmd.OCRCrop)
	if err != nil {
		uc.logger.Error("Failed to recognize text", err, "langs", langs)
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}
	return text, nil
}
