package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/ports"
)

const DefaultEventCapacity = 1024

// EventRepository is a bounded in-memory event history. Once full, the
// oldest events are dropped.
type EventRepository struct {
	mu       sync.RWMutex
	capacity int
	events   []domain.Event
}

func NewEventRepository(capacity int) *EventRepository {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &EventRepository{
		capacity: capacity,
		events:   make([]domain.Event, 0, capacity),
	}
}

var _ ports.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) Append(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == r.capacity {
		copy(r.events, r.events[1:])
		r.events = r.events[:len(r.events)-1]
	}
	r.events = append(r.events, event)
	return nil
}

// List returns matching events oldest first. A positive filter limit keeps
// the most recent matches.
func (r *EventRepository) List(ctx context.Context, ballotID uuid.UUID, filter domain.EventFilter) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Event{}
	for _, e := range r.events {
		if e.BallotID == ballotID && filter.Match(e) {
			out = append(out, e)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}
