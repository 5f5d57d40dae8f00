package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

// SnapshotRepository keeps encoded snapshots so callers never share slices
// with the stored copy.
type SnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID][]byte
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		snapshots: make(map[uuid.UUID][]byte),
	}
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

func (r *SnapshotRepository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.ID] = raw
	return nil
}

func (r *SnapshotRepository) Load(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error) {
	r.mu.RLock()
	raw, ok := r.snapshots[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrBallotNotFound
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *SnapshotRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.snapshots))
	for id := range r.snapshots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
