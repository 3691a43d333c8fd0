package port

import (
	"context"
	"time"
)

// PreviewKey однозначно идентифицирует результат построения превью
type PreviewKey struct {
	SnapshotID uint64
	MaxWidth   int
	MaxHeight  int
	Quality    int
}

// PreviewCache хранит последнее построенное превью
type PreviewCache interface {
	// Get возвращает байты превью для key, если они запомнены
	Get(key PreviewKey) ([]byte, bool)

	// Put запоминает превью, вытесняя предыдущее
	Put(key PreviewKey, data []byte)

	// Len возвращает число запомненных превью
	Len() int
}

// ImageResizer уменьшает JPEG изображение
type ImageResizer interface {
	// Thumbnail вписывает изображение в maxWidth x maxHeight и кодирует JPEG с качеством quality
	Thumbnail(data []byte, maxWidth, maxHeight, quality int) ([]byte, error)
}

// Offloader выполняет CPU-bound задачу вне горутины обработки запроса
type Offloader interface {
	// Do выполняет fn и ждет результат либо отмену ctx
	Do(ctx context.Context, fn func() ([]byte, error)) ([]byte, error)
}

// PreviewResult описывает, как было получено превью
type PreviewResult string

const (
	PreviewHit         PreviewResult = "hit"
	PreviewMiss        PreviewResult = "miss"
	PreviewPassthrough PreviewResult = "passthrough"
)

// DispatchMetrics собирает метрики обработки снапшотов
type DispatchMetrics interface {
	ObservePreview(result PreviewResult, duration time.Duration)
	IncSnapshotUnavailable()
}
