// Package store defines the persistence ports the realtime core consumes.
// The core only ever creates and reads; durability is someone else's job.
package store

import (
	"context"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

type MessageRepository interface {
	Save(ctx context.Context, msg domain.Message) error
	ByRoom(ctx context.Context, room domain.RoomID) ([]domain.Message, error)
	MarkDeleted(ctx context.Context, id domain.MessageID) error
}

type RoomRepository interface {
	Save(ctx context.Context, room domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (domain.Room, bool, error)
	List(ctx context.Context) ([]domain.Room, error)
}

type CallLogRepository interface {
	Save(ctx context.Context, entry domain.CallLog) error
	ByRoom(ctx context.Context, room domain.RoomID) ([]domain.CallLog, error)
}
