package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/service"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/valueobject"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	snapshot *entity.Snapshot
	state    map[string]interface{}
	err      error
	calls    int
	removed  int
	lastSave bool
	lastLoad bool
}

func (f *fakeSource) GetState(_ context.Context) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

func (f *fakeSource) TakeSnapshot(_ context.Context, save, load, _ bool) (*entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSave = save
	f.lastLoad = load
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeSource) RemoveSnapshot(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed++
}

type recognizeCall struct {
	langs []string
	crop  valueobject.CropRect
}

type fakeExtractor struct {
	available    bool
	defaultLangs []string
	langs        []string
	text         string
	err          error
	calls        []recognizeCall
}

func (f *fakeExtractor) IsAvailable() bool {
	return f.available
}

func (f *fakeExtractor) GetDefaultLangs(_ context.Context) ([]string, error) {
	return f.defaultLangs, nil
}

func (f *fakeExtractor) GetAvailableLangs(_ context.Context) ([]string, error) {
	return f.langs, nil
}

func (f *fakeExtractor) Recognize(_ context.Context, _ []byte, langs []string, crop valueobject.CropRect) (string, error) {
	f.calls = append(f.calls, recognizeCall{langs: langs, crop: crop})
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type mapPreviewCache struct {
	mu    sync.Mutex
	items map[port.PreviewKey][]byte
}

func newMapPreviewCache() *mapPreviewCache {
	return &mapPreviewCache{items: make(map[port.PreviewKey][]byte)}
}

func (c *mapPreviewCache) Get(key port.PreviewKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	return data, ok
}

func (c *mapPreviewCache) Put(key port.PreviewKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = data
}

func (c *mapPreviewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type thumbnailCall struct {
	width   int
	height  int
	quality int
}

type fakeResizer struct {
	mu      sync.Mutex
	calls   []thumbnailCall
	release chan struct{}
	err     error
}

func (r *fakeResizer) Thumbnail(_ []byte, maxWidth, maxHeight, quality int) ([]byte, error) {
	if r.release != nil {
		<-r.release
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, thumbnailCall{width: maxWidth, height: maxHeight, quality: quality})
	if r.err != nil {
		return nil, r.err
	}
	return []byte("preview"), nil
}

func (r *fakeResizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type inlineOffloader struct{}

func (inlineOffloader) Do(_ context.Context, fn func() ([]byte, error)) ([]byte, error) {
	return fn()
}

type fakeMetrics struct {
	mu          sync.Mutex
	previews    map[port.PreviewResult]int
	unavailable int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{previews: make(map[port.PreviewResult]int)}
}

func (m *fakeMetrics) ObservePreview(result port.PreviewResult, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previews[result]++
}

func (m *fakeMetrics) IncSnapshotUnavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable++
}

func (m *fakeMetrics) previewCount(result port.PreviewResult) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.previews[result]
}

type archivePut struct {
	key         string
	contentType string
	size        int
}

type fakeArchive struct {
	mu   sync.Mutex
	puts []archivePut
	err  error
}

func (a *fakeArchive) PutObject(_ context.Context, key, contentType string, body []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.puts = append(a.puts, archivePut{key: key, contentType: contentType, size: len(body)})
	if a.err != nil {
		return "", a.err
	}
	return "https://example.com/" + key, nil
}

type publishedEvent struct {
	subject string
	event   interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, subject string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (p *fakePublisher) Close() error {
	return nil
}

type fakeNotifier struct {
	states []map[string]interface{}
}

func (n *fakeNotifier) BroadcastState(state map[string]interface{}) {
	n.states = append(n.states, state)
}

func (n *fakeNotifier) ClientCount() int {
	return 1
}

var errBoom = errors.New("boom")

func testLogger() *logger.Logger {
	return logger.New("error")
}

func mustSnapshot(t *testing.T, width, height int, data string) *entity.Snapshot {
	t.Helper()

	headers := []entity.Header{
		{Name: "X-UStreamer-Online", Value: "true"},
		{Name: "X-UStreamer-Width", Value: "100"},
		{Name: "X-UStreamer-Height", Value: "50"},
	}
	snapshot, err := entity.NewSnapshot(true, width, height, headers, []byte(data), time.Date(2026, 3, 1, 10, 20, 30, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snapshot
}

func newTestPreviewGenerator(cache port.PreviewCache, resizer port.ImageResizer, metrics port.DispatchMetrics) *PreviewGenerator {
	return NewPreviewGenerator(cache, resizer, inlineOffloader{}, service.NewPreviewSizer(), metrics, testLogger())
}
