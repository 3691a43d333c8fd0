package dto

import (
	"time"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
)

// SnapshotEventDTO публикуется в брокер сообщений при сохранении и удалении кадра
type SnapshotEventDTO struct {
	Event      string            `json:"event"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Online     bool              `json:"online"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	SizeBytes  int               `json:"size_bytes,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	ArchiveURL string            `json:"archive_url,omitempty"`
	CapturedAt time.Time         `json:"captured_at,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewSnapshotSavedEvent конвертирует снапшот в событие сохранения
func NewSnapshotSavedEvent(snapshot *entity.Snapshot, archiveURL string) *SnapshotEventDTO {
	return &SnapshotEventDTO{
		Event:      "saved",
		SnapshotID: snapshot.IDString(),
		Online:     snapshot.Online(),
		Width:      snapshot.Width(),
		Height:     snapshot.Height(),
		SizeBytes:  len(snapshot.Data()),
		Headers:    snapshot.HeadersMap(),
		ArchiveURL: archiveURL,
		CapturedAt: snapshot.CapturedAt(),
		Timestamp:  time.Now().UTC(),
	}
}

// NewSnapshotRemovedEvent создает событие удаления сохраненного кадра
func NewSnapshotRemovedEvent() *SnapshotEventDTO {
	return &SnapshotEventDTO{
		Event:     "removed",
		Timestamp: time.Now().UTC(),
	}
}
