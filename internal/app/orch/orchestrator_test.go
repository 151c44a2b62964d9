package orch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluesea-chat/bluesea/internal/app"
	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
	"github.com/bluesea-chat/bluesea/internal/store/memory"
)

type recordConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (r *recordConn) TrySend(fr core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, fr)
	return nil
}

func (r *recordConn) Close() {}

func (r *recordConn) types(t *testing.T) []string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, fr := range r.frames {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(fr, &env))
		out = append(out, env.Type)
	}
	return out
}

func newOrchestrator() (*Orchestrator, *memory.MessageRepository) {
	presence := app.NewPresence()
	rooms := app.NewRooms()
	relay := app.NewRelay(presence, rooms)
	messages := memory.NewMessageRepository()
	return &Orchestrator{
		Presence: presence,
		Rooms:    rooms,
		Relay:    relay,
		Calls:    app.NewCalls(relay),
		Messages: messages,
	}, messages
}

func TestJoinBroadcasts(t *testing.T) {
	o, _ := newOrchestrator()
	alice, bob := &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", bob)

	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")

	// Alice sees bob's arrival plus both participant lists; bob never
	// sees his own user-joined.
	assert.Equal(t, []string{protocol.TypeRoomParticipants, protocol.TypeUserJoined, protocol.TypeRoomParticipants}, alice.types(t))
	assert.Equal(t, []string{protocol.TypeRoomParticipants}, bob.types(t))
}

func TestDuplicateJoinOnlyResendsParticipants(t *testing.T) {
	o, _ := newOrchestrator()
	alice, bob := &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", bob)
	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")
	before := len(alice.types(t))

	o.Join("bob", "Bob", "lobby")

	types := alice.types(t)
	require.Len(t, types, before+1)
	assert.Equal(t, protocol.TypeRoomParticipants, types[before])
}

func TestDisconnectIsImplicitLeave(t *testing.T) {
	o, _ := newOrchestrator()
	alice, bob := &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", bob)
	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")

	o.Disconnect("bob", "Bob", bob)

	types := alice.types(t)
	assert.Contains(t, types, protocol.TypeUserLeft)
	assert.Equal(t, []domain.UserID{"alice"}, o.Rooms.Members("lobby"))
	assert.False(t, o.Presence.Online("bob"))
}

func TestStaleDisconnectIsNoOp(t *testing.T) {
	o, _ := newOrchestrator()
	alice, stale, fresh := &recordConn{}, &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", stale)
	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")

	// Bob reconnects before the old connection's teardown fires.
	o.Connect("bob", fresh)
	o.Disconnect("bob", "Bob", stale)

	assert.True(t, o.Presence.Online("bob"))
	assert.Contains(t, o.Rooms.Members("lobby"), domain.UserID("bob"))
	assert.NotContains(t, alice.types(t), protocol.TypeUserLeft)
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	o, messages := newOrchestrator()
	alice, bob := &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", bob)
	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")

	msg, err := o.SendMessage(context.Background(), "alice", "Alice", "lobby", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	stored, err := messages.ByRoom(context.Background(), "lobby")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Content)

	// Sender included in the chat broadcast.
	assert.Contains(t, alice.types(t), protocol.TypeNewMessage)
	assert.Contains(t, bob.types(t), protocol.TypeNewMessage)
}

func TestDeleteMessageForEveryone(t *testing.T) {
	o, messages := newOrchestrator()
	alice, bob := &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", bob)
	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")
	msg, err := o.SendMessage(context.Background(), "alice", "Alice", "lobby", "oops")
	require.NoError(t, err)

	require.NoError(t, o.DeleteMessage(context.Background(), "alice", "lobby", msg.ID, true))

	stored, err := messages.ByRoom(context.Background(), "lobby")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Deleted)
	assert.Empty(t, stored[0].Content)

	assert.Contains(t, bob.types(t), protocol.TypeMessageDeleted)
	assert.NotContains(t, alice.types(t), protocol.TypeMessageDeleted)
}

func TestDeleteMessageForSelfStaysLocal(t *testing.T) {
	o, _ := newOrchestrator()
	alice, bob := &recordConn{}, &recordConn{}
	o.Connect("alice", alice)
	o.Connect("bob", bob)
	o.Join("alice", "Alice", "lobby")
	o.Join("bob", "Bob", "lobby")
	msg, err := o.SendMessage(context.Background(), "alice", "Alice", "lobby", "oops")
	require.NoError(t, err)

	require.NoError(t, o.DeleteMessage(context.Background(), "alice", "lobby", msg.ID, false))

	assert.NotContains(t, bob.types(t), protocol.TypeMessageDeleted)
}
