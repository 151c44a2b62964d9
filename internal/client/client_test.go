package client_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/bluesea-chat/bluesea/internal/adapters/http"
	"github.com/bluesea-chat/bluesea/internal/adapters/signal"
	"github.com/bluesea-chat/bluesea/internal/app"
	"github.com/bluesea-chat/bluesea/internal/app/orch"
	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/client"
	"github.com/bluesea-chat/bluesea/internal/config"
	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
	"github.com/bluesea-chat/bluesea/internal/store/memory"
)

const eventWait = 5 * time.Second

func newSignalServer(t *testing.T) (*httptest.Server, *auth.TokenGate) {
	t.Helper()
	cfg := &config.Config{
		Mode:       "release",
		StaticPath: t.TempDir(),
		ReadLimit:  1 << 16,
		PingPeriod: 30 * time.Second,
		Secret:     "test-secret",
	}
	presence := app.NewPresence()
	rooms := app.NewRooms()
	relay := app.NewRelay(presence, rooms)
	o := &orch.Orchestrator{
		Presence: presence,
		Rooms:    rooms,
		Relay:    relay,
		Calls:    app.NewCalls(relay),
		Messages: memory.NewMessageRepository(),
	}
	gate := auth.NewTokenGate(cfg.Secret, time.Hour)
	router := httpadapter.SetupRouter(cfg, httpadapter.Deps{
		Gate:     gate,
		Signal:   signal.NewController(o, gate, cfg),
		Rooms:    memory.NewRoomRepository(),
		Messages: memory.NewMessageRepository(),
		CallLogs: memory.NewCallLogRepository(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, gate
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
}

func testCapture(domain.CallKind) (*client.LocalMedia, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "capture")
	if err != nil {
		return nil, err
	}
	return client.NewLocalMedia([]webrtc.TrackLocal{track}, nil, func() {}), nil
}

func dialClient(t *testing.T, srv *httptest.Server, gate *auth.TokenGate, id domain.UserID, name string, events client.Events) *client.Client {
	t.Helper()
	token, err := gate.Issue(id, name)
	require.NoError(t, err)
	c, err := client.Dial(context.Background(), client.Options{
		URL:         wsURL(srv),
		Token:       token,
		DisplayName: name,
		Events:      events,
	})
	require.NoError(t, err)
	c.Call().Manager().SetCapture(testCapture)
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(eventWait):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestDialRejectsBadToken(t *testing.T) {
	srv, _ := newSignalServer(t)
	_, err := client.Dial(context.Background(), client.Options{URL: wsURL(srv), Token: "bogus"})
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestClientJoinAndChat(t *testing.T) {
	srv, gate := newSignalServer(t)

	joined := make(chan domain.UserID, 4)
	messages := make(chan protocol.NewMessage, 4)
	alice := dialClient(t, srv, gate, "alice", "Alice", client.Events{
		OnUserJoined: func(_ domain.RoomID, user domain.UserID, _ string) { joined <- user },
	})
	bob := dialClient(t, srv, gate, "bob", "Bob", client.Events{
		OnMessage: func(msg protocol.NewMessage) { messages <- msg },
	})

	require.NoError(t, alice.JoinRoom("lobby"))
	require.NoError(t, bob.JoinRoom("lobby"))
	assert.Equal(t, domain.UserID("bob"), recv(t, joined, "user-joined"))

	require.NoError(t, alice.SendChat("lobby", "hello"))
	msg := recv(t, messages, "new-message")
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, domain.UserID("alice"), msg.Sender)
}

// The complete lifecycle over a real socket pair: ring, accept, offer
// and answer through the relay, then hang up.
func TestClientCallLifecycle(t *testing.T) {
	srv, gate := newSignalServer(t)

	incoming := make(chan domain.UserID, 1)
	accepted := make(chan domain.UserID, 1)
	ended := make(chan domain.UserID, 1)

	alice := dialClient(t, srv, gate, "alice", "Alice", client.Events{
		OnCallAccepted: func(from domain.UserID) { accepted <- from },
	})
	bob := dialClient(t, srv, gate, "bob", "Bob", client.Events{
		OnIncomingCall: func(from domain.UserID, _ string, _ domain.CallKind) { incoming <- from },
		OnCallEnded:    func(from domain.UserID) { ended <- from },
	})

	require.NoError(t, alice.JoinRoom("lobby"))
	require.NoError(t, bob.JoinRoom("lobby"))
	// Let the server settle both memberships before ringing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, alice.Call().Start("lobby", domain.CallAudio))
	assert.Equal(t, domain.UserID("alice"), recv(t, incoming, "incoming-call"))

	require.NoError(t, bob.Call().Accept("alice"))
	assert.Equal(t, domain.UserID("bob"), recv(t, accepted, "call-accepted"))

	// Offer/answer flow through the relay until both ends hold a session.
	require.Eventually(t, func() bool {
		return alice.Call().Manager().SessionCount() == 1 && bob.Call().Manager().SessionCount() == 1
	}, eventWait, 20*time.Millisecond, "negotiation did not converge")

	require.NoError(t, alice.Call().HangUp("bob"))
	assert.Equal(t, domain.UserID("alice"), recv(t, ended, "call-ended"))

	require.Eventually(t, func() bool {
		return alice.Call().Manager().SessionCount() == 0 && bob.Call().Manager().SessionCount() == 0
	}, eventWait, 20*time.Millisecond, "teardown did not complete")
}
