// Package protocol defines the tagged JSON envelopes exchanged over the
// signaling socket. Every message carries a "type" tag; server-originated
// messages additionally carry the sender identity in "fromId".
package protocol

import (
	"encoding/json"
	"time"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

const (
	TypeJoinRoom         = "join-room"
	TypeLeaveRoom        = "leave-room"
	TypeRoomParticipants = "room-participants"
	TypeUserJoined       = "user-joined"
	TypeUserLeft         = "user-left"
	TypeSendMessage      = "send-message"
	TypeNewMessage       = "new-message"
	TypeDeleteMessage    = "delete-message"
	TypeMessageDeleted   = "message-deleted"
	TypeInitiateCall     = "initiate-call"
	TypeIncomingCall     = "incoming-call"
	TypeAcceptCall       = "accept-call"
	TypeRejectCall       = "reject-call"
	TypeCallAccepted     = "call-accepted"
	TypeCallRejected     = "call-rejected"
	TypeOffer            = "negotiation-offer"
	TypeAnswer           = "negotiation-answer"
	TypeCandidate        = "network-candidate"
	TypeEndCall          = "end-call"
	TypeCallEnded        = "call-ended"
	TypeError            = "error"
)

// Envelope is the minimal header used to route an incoming frame.
type Envelope struct {
	Type string `json:"type"`
}

type JoinRoom struct {
	Type        string        `json:"type"`
	Room        domain.RoomID `json:"room"`
	DisplayName string        `json:"displayName"`
}

type LeaveRoom struct {
	Type        string        `json:"type"`
	Room        domain.RoomID `json:"room"`
	DisplayName string        `json:"displayName"`
}

type RoomParticipants struct {
	Type         string          `json:"type"`
	Room         domain.RoomID   `json:"room"`
	Participants []domain.UserID `json:"participants"`
}

// UserEvent announces a join or leave to the rest of a room.
type UserEvent struct {
	Type        string        `json:"type"`
	Room        domain.RoomID `json:"room"`
	From        domain.UserID `json:"fromId"`
	DisplayName string        `json:"displayName"`
}

type SendMessage struct {
	Type        string        `json:"type"`
	Room        domain.RoomID `json:"room"`
	Content     string        `json:"content"`
	DisplayName string        `json:"displayName"`
}

type NewMessage struct {
	Type        string           `json:"type"`
	ID          domain.MessageID `json:"id"`
	Room        domain.RoomID    `json:"room"`
	Sender      domain.UserID    `json:"sender"`
	DisplayName string           `json:"displayName"`
	Content     string           `json:"content"`
	Timestamp   time.Time        `json:"timestamp"`
}

type DeleteMessage struct {
	Type              string           `json:"type"`
	Room              domain.RoomID    `json:"room"`
	MessageID         domain.MessageID `json:"messageId"`
	DeleteForEveryone bool             `json:"deleteForEveryone"`
}

type MessageDeleted struct {
	Type              string           `json:"type"`
	Room              domain.RoomID    `json:"room"`
	MessageID         domain.MessageID `json:"messageId"`
	DeleteForEveryone bool             `json:"deleteForEveryone"`
}

type InitiateCall struct {
	Type        string          `json:"type"`
	Room        domain.RoomID   `json:"room"`
	Kind        domain.CallKind `json:"callKind"`
	DisplayName string          `json:"displayName"`
}

type IncomingCall struct {
	Type        string          `json:"type"`
	From        domain.UserID   `json:"fromId"`
	DisplayName string          `json:"displayName"`
	Kind        domain.CallKind `json:"callKind"`
}

// CallControl targets accept-call / reject-call at one identity.
type CallControl struct {
	Type   string        `json:"type"`
	Target domain.UserID `json:"targetId"`
}

// CallResult carries call-accepted / call-rejected / call-ended back to
// the interested party.
type CallResult struct {
	Type string        `json:"type"`
	From domain.UserID `json:"fromId"`
}

// Descriptor relays a session description. The payload is opaque to the
// server; only the client interprets it.
type Descriptor struct {
	Type       string          `json:"type"`
	Target     domain.UserID   `json:"targetId,omitempty"`
	From       domain.UserID   `json:"fromId,omitempty"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// Candidate relays one network candidate, same opacity rule as Descriptor.
type Candidate struct {
	Type      string          `json:"type"`
	Target    domain.UserID   `json:"targetId,omitempty"`
	From      domain.UserID   `json:"fromId,omitempty"`
	Candidate json.RawMessage `json:"candidate"`
}

// EndCall ends a call either toward one identity or the whole room.
type EndCall struct {
	Type   string        `json:"type"`
	Room   domain.RoomID `json:"room,omitempty"`
	Target domain.UserID `json:"targetId,omitempty"`
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
