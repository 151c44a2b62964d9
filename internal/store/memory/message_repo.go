package memory

import (
	"context"
	"sync"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

type MessageRepository struct {
	mu       sync.Mutex
	messages []domain.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{messages: make([]domain.Message, 0)}
}

func (r *MessageRepository) Save(_ context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *MessageRepository) ByRoom(_ context.Context, room domain.RoomID) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Message, 0)
	for _, m := range r.messages {
		if m.Room == room {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MessageRepository) MarkDeleted(_ context.Context, id domain.MessageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Deleted = true
			r.messages[i].Content = ""
		}
	}
	return nil
}
