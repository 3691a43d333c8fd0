package entity

import (
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Header представляет один заголовок ответа, связанный со снапшотом
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Snapshot представляет кадр, снятый стримером (Value Object)
// После создания не изменяется
type Snapshot struct {
	id         uint64
	online     bool
	width      int
	height     int
	headers    []Header
	data       []byte
	capturedAt time.Time
}

// NewSnapshot создает снапшот (Factory Method)
func NewSnapshot(online bool, width, height int, headers []Header, data []byte, capturedAt time.Time) (*Snapshot, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("snapshot dimensions must be positive")
	}
	if len(data) == 0 {
		return nil, errors.New("snapshot data is empty")
	}

	return &Snapshot{
		id:         xxhash.Sum64(data),
		online:     online,
		width:      width,
		height:     height,
		headers:    append([]Header(nil), headers...),
		data:       data,
		capturedAt: capturedAt,
	}, nil
}

// ID идентифицирует снятое изображение по его содержимому.
// Два снапшота с одинаковыми байтами имеют одинаковый ID
func (s *Snapshot) ID() uint64 {
	return s.id
}

// IDString возвращает ID в шестнадцатеричном виде (для ключей и логов)
func (s *Snapshot) IDString() string {
	return strconv.FormatUint(s.id, 16)
}

// Online сообщает, был ли кадр снят с живого сигнала
func (s *Snapshot) Online() bool {
	return s.online
}

func (s *Snapshot) Width() int {
	return s.width
}

func (s *Snapshot) Height() int {
	return s.height
}

// Data возвращает JPEG байты. Вызывающий код не должен их изменять
func (s *Snapshot) Data() []byte {
	return s.data
}

// Headers возвращает копию заголовков в исходном порядке
func (s *Snapshot) Headers() []Header {
	return append([]Header(nil), s.headers...)
}

// CapturedAt возвращает время снятия кадра
func (s *Snapshot) CapturedAt() time.Time {
	return s.capturedAt
}

// HeadersMap возвращает заголовки в виде map (для JSON состояния)
func (s *Snapshot) HeadersMap() map[string]string {
	result := make(map[string]string, len(s.headers))
	for _, h := range s.headers {
		result[h.Name] = h.Value
	}
	return result
}
