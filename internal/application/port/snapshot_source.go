package port

import (
	"context"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
)

// SnapshotSource определяет интерфейс подсистемы захвата (Port)
// Реализация в Infrastructure слое (клиент стримера)
type SnapshotSource interface {
	// GetState возвращает текущее состояние стримера
	GetState(ctx context.Context) (map[string]interface{}, error)

	// TakeSnapshot снимает кадр. nil без ошибки означает "снапшота нет"
	TakeSnapshot(ctx context.Context, save, load, allowOffline bool) (*entity.Snapshot, error)

	// RemoveSnapshot удаляет сохраненный кадр
	RemoveSnapshot(ctx context.Context)
}

// SnapshotRetention хранит последний сохраненный кадр
type SnapshotRetention interface {
	// Save заменяет сохраненный кадр
	Save(ctx context.Context, snapshot *entity.Snapshot) error

	// Load возвращает сохраненный кадр или nil
	Load(ctx context.Context) (*entity.Snapshot, error)

	// Remove удаляет сохраненный кадр
	Remove(ctx context.Context) error
}
