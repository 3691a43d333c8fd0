package memory

import (
	"context"
	"sync"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
)

// Retention keeps the saved snapshot in process memory.
type Retention struct {
	mu       sync.RWMutex
	snapshot *entity.Snapshot
}

func NewRetention() *Retention {
	return &Retention{}
}

func (r *Retention) Save(_ context.Context, snapshot *entity.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = snapshot
	return nil
}

// Load returns the saved snapshot or nil when nothing is saved.
func (r *Retention) Load(_ context.Context) (*entity.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot, nil
}

func (r *Retention) Remove(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = nil
	return nil
}
