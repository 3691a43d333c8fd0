package usecase

import (
	"context"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// RemoveSnapshotUseCase удаляет сохраненный кадр
type RemoveSnapshotUseCase struct {
	source      port.SnapshotSource
	sideEffects *SnapshotSideEffects
	logger      *logger.Logger
}

// NewRemoveSnapshotUseCase создает новый use case. sideEffects может быть nil
func NewRemoveSnapshotUseCase(
	source port.SnapshotSource,
	sideEffects *SnapshotSideEffects,
	logger *logger.Logger,
) *RemoveSnapshotUseCase {
	return &RemoveSnapshotUseCase{
		source:      source,
		sideEffects: sideEffects,
		logger:      logger,
	}
}

// Execute удаляет кадр; операция идемпотентна
func (uc *RemoveSnapshotUseCase) Execute(ctx context.Context) {
	uc.source.RemoveSnapshot(ctx)
	uc.logger.Debug("Saved snapshot removed")
	uc.sideEffects.SnapshotRemoved()
}
