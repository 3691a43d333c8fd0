package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// GetStreamerStateUseCase возвращает состояние стримера
type GetStreamerStateUseCase struct {
	source port.SnapshotSource
	logger *logger.Logger
}

func NewGetStreamerStateUseCase(source port.SnapshotSource, logger *logger.Logger) *GetStreamerStateUseCase {
	return &GetStreamerStateUseCase{
		source: source,
		logger: logger,
	}
}

func (uc *GetStreamerStateUseCase) Execute(ctx context.Context) (map[string]interface{}, error) {
	state, err := uc.source.GetState(ctx)
	if err != nil {
		uc.logger.Error("Failed to get streamer state", err)
		return nil, fmt.Errorf("failed to get streamer state: %w", err)
	}
	return state, nil
}
