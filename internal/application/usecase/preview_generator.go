package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/valueobject"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// PreviewGenerator строит уменьшенные JPEG превью снапшотов.
// Последний результат запоминается в PreviewCache, одинаковые
// одновременные запросы выполняют одно построение
type PreviewGenerator struct {
	cache     port.PreviewCache
	resizer   port.ImageResizer
	offloader port.Offloader
	sizer     *service.PreviewSizer
	metrics   port.DispatchMetrics
	logger    *logger.Logger

	group singleflight.Group
}

// NewPreviewGenerator создает генератор превью. metrics может быть nil
func NewPreviewGenerator(
	cache port.PreviewCache,
	resizer port.ImageResizer,
	offloader port.Offloader,
	sizer *service.PreviewSizer,
	metrics port.DispatchMetrics,
	logger *logger.Logger,
) *PreviewGenerator {
	return &PreviewGenerator{
		cache:     cache,
		resizer:   resizer,
		offloader: offloader,
		sizer:     sizer,
		metrics:   metrics,
		logger:    logger,
	}
}

// MakePreview возвращает превью снапшота, вписанное в box
func (g *PreviewGenerator) MakePreview(
	ctx context.Context,
	snapshot *entity.Snapshot,
	box valueobject.PreviewBox,
) ([]byte, error) {
	started := time.Now()

	width, height := g.sizer.ResolveTarget(snapshot.Width(), snapshot.Height(), box.MaxWidth, box.MaxHeight)
	if g.sizer.IsPassthrough(snapshot.Width(), snapshot.Height(), width, height) {
		g.observe(port.PreviewPassthrough, started)
		return snapshot.Data(), nil
	}

	if err := g.sizer.CheckDownscale(snapshot.Width(), snapshot.Height(), width, height); err != nil {
		return nil, fmt.Errorf("invalid preview size: %w", err)
	}

	key := port.PreviewKey{
		SnapshotID: snapshot.ID(),
		MaxWidth:   width,
		MaxHeight:  height,
		Quality:    box.Quality,
	}

	if data, ok := g.cache.Get(key); ok {
		g.observe(port.PreviewHit, started)
		return data, nil
	}

	// Построение не привязано к отмене конкретного запроса:
	// его результат ждут все совпавшие запросы и кеш
	renderCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(flightKey(key), func() (interface{}, error) {
		if data, ok := g.cache.Get(key); ok {
			return data, nil
		}

		data, err := g.offloader.Do(renderCtx, func() ([]byte, error) {
			return g.resizer.Thumbnail(snapshot.Data(), width, height, box.Quality)
		})
		if err != nil {
			return nil, err
		}

		g.cache.Put(key, data)
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			g.logger.Error("Failed to build preview", res.Err,
				"snapshot_id", snapshot.IDString(),
				"box", box.String(),
			)
			return nil, fmt.Errorf("failed to build preview: %w", res.Err)
		}
		g.observe(port.PreviewMiss, started)
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *PreviewGenerator) observe(result port.PreviewResult, started time.Time) {
	if g.metrics != nil {
		g.metrics.ObservePreview(result, time.Since(started))
	}
}

func flightKey(key port.PreviewKey) string {
	return fmt.Sprintf("%x:%dx%d:%d", key.SnapshotID, key.MaxWidth, key.MaxHeight, key.Quality)
}
