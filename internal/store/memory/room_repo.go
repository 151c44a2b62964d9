package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

type RoomRepository struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]domain.Room
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{rooms: make(map[domain.RoomID]domain.Room)}
}

func (r *RoomRepository) Save(_ context.Context, room domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID] = room
	return nil
}

func (r *RoomRepository) Get(_ context.Context, id domain.RoomID) (domain.Room, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok, nil
}

func (r *RoomRepository) List(_ context.Context) ([]domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
