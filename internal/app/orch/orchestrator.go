// Package orch wires the presence registry, room tracker, relay and call
// coordinator into the flows the signal adapter drives. Every mutation
// path (join, leave, disconnect) goes through here so broadcasts are
// always computed from a consistent membership snapshot.
package orch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/app"
	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
	"github.com/bluesea-chat/bluesea/internal/store"
)

type Orchestrator struct {
	Presence *app.Presence
	Rooms    *app.Rooms
	Relay    *app.Relay
	Calls    *app.Calls
	Messages store.MessageRepository
}

// Connect registers the connection as the live handle for id.
func (o *Orchestrator) Connect(id domain.UserID, conn core.SignalConnection) {
	o.Presence.Register(id, conn)
}

// Join adds id to room and fires the two join broadcasts: a "joined"
// notification to the others and the full participant list to everyone.
// Both are idempotent; a duplicate join only re-sends the list.
func (o *Orchestrator) Join(id domain.UserID, displayName string, room domain.RoomID) {
	members, already := o.Rooms.Join(room, id)
	if !already {
		o.Relay.SendTo(members, id, protocol.UserEvent{
			Type:        protocol.TypeUserJoined,
			Room:        room,
			From:        id,
			DisplayName: displayName,
		})
	}
	o.Relay.SendTo(members, "", protocol.RoomParticipants{
		Type:         protocol.TypeRoomParticipants,
		Room:         room,
		Participants: members,
	})
}

// Leave removes id from room and fires the leave broadcasts to whoever
// remains. Idempotent on absence.
func (o *Orchestrator) Leave(id domain.UserID, displayName string, room domain.RoomID) {
	members, was := o.Rooms.Leave(room, id)
	if !was {
		return
	}
	o.Relay.SendTo(members, "", protocol.UserEvent{
		Type:        protocol.TypeUserLeft,
		Room:        room,
		From:        id,
		DisplayName: displayName,
	})
	o.Relay.SendTo(members, "", protocol.RoomParticipants{
		Type:         protocol.TypeRoomParticipants,
		Room:         room,
		Participants: members,
	})
}

// Disconnect is the universal cleanup trigger. The compare-and-remove in
// Presence makes it a no-op when a newer connection has already replaced
// this one; otherwise it is an implicit leave from every room plus call
// teardown, firing the same broadcasts the explicit paths would.
func (o *Orchestrator) Disconnect(id domain.UserID, displayName string, conn core.SignalConnection) {
	if !o.Presence.Unregister(id, conn) {
		return
	}
	for _, snap := range o.Rooms.DropAll(id) {
		o.Relay.SendTo(snap.Members, "", protocol.UserEvent{
			Type:        protocol.TypeUserLeft,
			Room:        snap.Room,
			From:        id,
			DisplayName: displayName,
		})
		o.Relay.SendTo(snap.Members, "", protocol.RoomParticipants{
			Type:         protocol.TypeRoomParticipants,
			Room:         snap.Room,
			Participants: snap.Members,
		})
	}
	o.Calls.OnDisconnect(id)
	log.Info().Str("module", "orch").Str("user", string(id)).Msg("disconnected")
}

// SendMessage persists the message and broadcasts it to the room,
// sender included.
func (o *Orchestrator) SendMessage(ctx context.Context, id domain.UserID, displayName string, room domain.RoomID, content string) (domain.Message, error) {
	msg := domain.Message{
		ID:         domain.MessageID(uuid.NewString()),
		Room:       room,
		Sender:     id,
		SenderName: displayName,
		Content:    content,
		Timestamp:  time.Now(),
	}
	if err := o.Messages.Save(ctx, msg); err != nil {
		return domain.Message{}, err
	}
	o.Relay.BroadcastRoom(room, "", protocol.NewMessage{
		Type:        protocol.TypeNewMessage,
		ID:          msg.ID,
		Room:        room,
		Sender:      id,
		DisplayName: displayName,
		Content:     content,
		Timestamp:   msg.Timestamp,
	})
	return msg, nil
}

// DeleteMessage marks the row and, when deleteForEveryone, tells the
// rest of the room to drop it too.
func (o *Orchestrator) DeleteMessage(ctx context.Context, id domain.UserID, room domain.RoomID, msgID domain.MessageID, forEveryone bool) error {
	if err := o.Messages.MarkDeleted(ctx, msgID); err != nil {
		return err
	}
	if forEveryone {
		o.Relay.BroadcastRoom(room, id, protocol.MessageDeleted{
			Type:              protocol.TypeMessageDeleted,
			Room:              room,
			MessageID:         msgID,
			DeleteForEveryone: true,
		})
	}
	return nil
}

// InitiateCall rings every other current member of the room.
func (o *Orchestrator) InitiateCall(id domain.UserID, displayName string, room domain.RoomID, kind domain.CallKind) {
	o.Calls.Initiate(id, displayName, kind, o.Rooms.Members(room))
}
