package memory

import (
	"context"
	"sync"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

type CallLogRepository struct {
	mu      sync.Mutex
	entries []domain.CallLog
}

func NewCallLogRepository() *CallLogRepository {
	return &CallLogRepository{entries: make([]domain.CallLog, 0)}
}

func (r *CallLogRepository) Save(_ context.Context, entry domain.CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *CallLogRepository) ByRoom(_ context.Context, room domain.RoomID) ([]domain.CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CallLog, 0)
	for _, e := range r.entries {
		if e.Room == room {
			out = append(out, e)
		}
	}
	return out, nil
}
