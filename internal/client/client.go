// Package client is the browser-side counterpart of the signaling core:
// a websocket client that dispatches tagged envelopes into the call
// runtime and the peer connection manager.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

// Events are the application-facing callbacks. Any nil callback is
// simply skipped. OnRemoteTrack fires exactly once per peer session and
// is the sole success signal of negotiation.
type Events struct {
	OnParticipants   func(room domain.RoomID, participants []domain.UserID)
	OnUserJoined     func(room domain.RoomID, user domain.UserID, displayName string)
	OnUserLeft       func(room domain.RoomID, user domain.UserID, displayName string)
	OnMessage        func(msg protocol.NewMessage)
	OnMessageDeleted func(ev protocol.MessageDeleted)
	OnIncomingCall   func(from domain.UserID, displayName string, kind domain.CallKind)
	OnCallAccepted   func(from domain.UserID)
	OnCallRejected   func(from domain.UserID)
	OnCallEnded      func(from domain.UserID)
	OnRemoteTrack    func(remote domain.UserID, track *webrtc.TrackRemote)
}

// Options configure a client connection.
type Options struct {
	URL         string
	Token       string
	DisplayName string
	STUNServers []string
	Events      Events
	// ReportCallLog receives the finished call record so the caller can
	// write it to the call-log endpoint. Optional.
	ReportCallLog CallLogReporter
}

type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	displayName string
	events      Events
	call        *CallRuntime
}

// Dial connects and authenticates in one step: the credential goes with
// the handshake, and a rejected credential fails the dial with
// ErrUnauthenticated before any message flows.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+opts.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: connection refused", core.ErrUnauthenticated)
		}
		return nil, err
	}

	c := &Client{
		conn:        conn,
		displayName: opts.DisplayName,
		events:      opts.Events,
	}
	c.call = newCallRuntime(c, opts.STUNServers, opts.ReportCallLog)
	return c, nil
}

// Call exposes the call runtime for lifecycle operations and toggles.
func (c *Client) Call() *CallRuntime { return c.call }

// Run reads and dispatches messages until the connection drops or ctx
// is cancelled. Teardown of any live call state is guaranteed on exit.
func (c *Client) Run(ctx context.Context) error {
	defer c.call.shutdown()

	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.dispatch(data)
	}
}

func (c *Client) Close() error {
	c.call.shutdown()
	return c.conn.Close()
}

func (c *Client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) dispatch(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.TypeRoomParticipants:
		var p protocol.RoomParticipants
		if json.Unmarshal(data, &p) == nil && c.events.OnParticipants != nil {
			c.events.OnParticipants(p.Room, p.Participants)
		}
	case protocol.TypeUserJoined:
		var p protocol.UserEvent
		if json.Unmarshal(data, &p) == nil && c.events.OnUserJoined != nil {
			c.events.OnUserJoined(p.Room, p.From, p.DisplayName)
		}
	case protocol.TypeUserLeft:
		var p protocol.UserEvent
		if json.Unmarshal(data, &p) == nil && c.events.OnUserLeft != nil {
			c.events.OnUserLeft(p.Room, p.From, p.DisplayName)
		}
	case protocol.TypeNewMessage:
		var p protocol.NewMessage
		if json.Unmarshal(data, &p) == nil && c.events.OnMessage != nil {
			c.events.OnMessage(p)
		}
	case protocol.TypeMessageDeleted:
		var p protocol.MessageDeleted
		if json.Unmarshal(data, &p) == nil && c.events.OnMessageDeleted != nil {
			c.events.OnMessageDeleted(p)
		}
	case protocol.TypeIncomingCall:
		var p protocol.IncomingCall
		if json.Unmarshal(data, &p) == nil {
			c.call.onIncoming(p.From, p.Kind)
			if c.events.OnIncomingCall != nil {
				c.events.OnIncomingCall(p.From, p.DisplayName, p.Kind)
			}
		}
	case protocol.TypeCallAccepted:
		var p protocol.CallResult
		if json.Unmarshal(data, &p) == nil {
			c.call.onAccepted(p.From)
			if c.events.OnCallAccepted != nil {
				c.events.OnCallAccepted(p.From)
			}
		}
	case protocol.TypeCallRejected:
		var p protocol.CallResult
		if json.Unmarshal(data, &p) == nil {
			c.call.onRejected(p.From)
			if c.events.OnCallRejected != nil {
				c.events.OnCallRejected(p.From)
			}
		}
	case protocol.TypeCallEnded:
		var p protocol.CallResult
		if json.Unmarshal(data, &p) == nil {
			c.call.onEnded(p.From)
			if c.events.OnCallEnded != nil {
				c.events.OnCallEnded(p.From)
			}
		}
	case protocol.TypeOffer:
		var p protocol.Descriptor
		if json.Unmarshal(data, &p) == nil {
			c.call.onOffer(p.From, p.Descriptor)
		}
	case protocol.TypeAnswer:
		var p protocol.Descriptor
		if json.Unmarshal(data, &p) == nil {
			c.call.onAnswer(p.From, p.Descriptor)
		}
	case protocol.TypeCandidate:
		var p protocol.Candidate
		if json.Unmarshal(data, &p) == nil {
			c.call.onCandidate(p.From, p.Candidate)
		}
	case protocol.TypeError:
		var p protocol.Error
		if json.Unmarshal(data, &p) == nil {
			log.Warn().Str("module", "client").Str("error", p.Error).Msg("server error")
		}
	default:
		log.Warn().Str("module", "client").Str("type", env.Type).Msg("unknown signal")
	}
}

// JoinRoom enters a room; the server answers with room-participants.
func (c *Client) JoinRoom(room domain.RoomID) error {
	return c.send(protocol.JoinRoom{Type: protocol.TypeJoinRoom, Room: room, DisplayName: c.displayName})
}

func (c *Client) LeaveRoom(room domain.RoomID) error {
	return c.send(protocol.LeaveRoom{Type: protocol.TypeLeaveRoom, Room: room, DisplayName: c.displayName})
}

func (c *Client) SendChat(room domain.RoomID, content string) error {
	return c.send(protocol.SendMessage{Type: protocol.TypeSendMessage, Room: room, Content: content, DisplayName: c.displayName})
}

func (c *Client) DeleteMessage(room domain.RoomID, id domain.MessageID, forEveryone bool) error {
	return c.send(protocol.DeleteMessage{Type: protocol.TypeDeleteMessage, Room: room, MessageID: id, DeleteForEveryone: forEveryone})
}
