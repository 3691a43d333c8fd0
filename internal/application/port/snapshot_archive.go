package port

import "context"

// SnapshotArchive определяет интерфейс для выгрузки сохраненных кадров во внешнее хранилище.
type SnapshotArchive interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}
