package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/kvm-streamer-api/internal/application/dto"
	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

const sideEffectTimeout = 30 * time.Second

// SnapshotSideEffectsConfig конфигурация архивации сохраненных кадров
type SnapshotSideEffectsConfig struct {
	KeyPrefix string
}

// SnapshotSideEffects выгружает сохраненные кадры в архив и публикует события.
// Ошибки не влияют на ответ клиенту, они только логируются.
// archive и publisher могут быть nil
type SnapshotSideEffects struct {
	archive   port.SnapshotArchive
	publisher port.EventPublisher
	config    SnapshotSideEffectsConfig
	logger    *logger.Logger

	wg sync.WaitGroup
}

// NewSnapshotSideEffects создает обработчик побочных эффектов
func NewSnapshotSideEffects(
	archive port.SnapshotArchive,
	publisher port.EventPublisher,
	config SnapshotSideEffectsConfig,
	logger *logger.Logger,
) *SnapshotSideEffects {
	return &SnapshotSideEffects{
		archive:   archive,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// SnapshotSaved асинхронно архивирует кадр и публикует событие сохранения
func (s *SnapshotSideEffects) SnapshotSaved(snapshot *entity.Snapshot) {
	if s == nil || (s.archive == nil && s.publisher == nil) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		var archiveURL string
		if s.archive != nil {
			key := s.buildKey(snapshot.CapturedAt())
			url, err := s.archive.PutObject(ctx, key, "image/jpeg", snapshot.Data())
			if err != nil {
				s.logger.Warn("Failed to archive snapshot", "key", key, "error", err.Error())
			} else {
				archiveURL = url
				s.logger.Debug("Snapshot archived", "key", key, "size", len(snapshot.Data()))
			}
		}

		s.publish(ctx, port.SubjectSnapshotSaved, dto.NewSnapshotSavedEvent(snapshot, archiveURL))
	}()
}

// SnapshotRemoved асинхронно публикует событие удаления
func (s *SnapshotSideEffects) SnapshotRemoved() {
	if s == nil || s.publisher == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		s.publish(ctx, port.SubjectSnapshotRemoved, dto.NewSnapshotRemovedEvent())
	}()
}

// Wait ждет завершения запущенных фоновых задач
func (s *SnapshotSideEffects) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}

func (s *SnapshotSideEffects) publish(ctx context.Context, subject string, event *dto.SnapshotEventDTO) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, subject, event); err != nil {
		s.logger.Warn("Failed to publish snapshot event", "subject", subject, "error", err.Error())
	}
}

func (s *SnapshotSideEffects) buildKey(capturedAt time.Time) string {
	prefix := strings.Trim(s.config.KeyPrefix, "/")
	if prefix == "" {
		prefix = "snapshots"
	}

	capturedAt = capturedAt.UTC()
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	timestamp := capturedAt.Format("20060102T150405Z")
	datePrefix := capturedAt.Format("2006/01/02")

	return fmt.Sprintf("%s/%s/%s_%s.jpg", prefix, datePrefix, timestamp, uuid.NewString())
}
