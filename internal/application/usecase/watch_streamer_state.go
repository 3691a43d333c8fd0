package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// WatchStreamerStateUseCase периодически опрашивает стример и
// рассылает состояние подписчикам, когда оно изменилось
type WatchStreamerStateUseCase struct {
	source   port.SnapshotSource
	notifier port.StateNotifier
	logger   *logger.Logger

	last []byte
}

func NewWatchStreamerStateUseCase(
	source port.SnapshotSource,
	notifier port.StateNotifier,
	logger *logger.Logger,
) *WatchStreamerStateUseCase {
	return &WatchStreamerStateUseCase{
		source:   source,
		notifier: notifier,
		logger:   logger,
	}
}

// Run опрашивает стример с интервалом interval до отмены ctx
func (uc *WatchStreamerStateUseCase) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("Streamer state watcher started", "interval", interval)

	uc.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("Streamer state watcher stopped")
			return
		case <-ticker.C:
			uc.Poll(ctx)
		}
	}
}

// Poll выполняет один опрос; возвращает true, если состояние было разослано
func (uc *WatchStreamerStateUseCase) Poll(ctx context.Context) bool {
	state, err := uc.source.GetState(ctx)
	if err != nil {
		uc.logger.Warn("Failed to poll streamer state", "error", err.Error())
		return false
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		uc.logger.Error("Failed to encode streamer state", err)
		return false
	}

	if uc.last != nil && bytes.Equal(uc.last, encoded) {
		return false
	}
	uc.last = encoded

	uc.notifier.BroadcastState(state)
	uc.logger.Debug("Streamer state broadcasted", "clients", uc.notifier.ClientCount())
	return true
}
