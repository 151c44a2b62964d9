package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

// CallPhase is the lifecycle phase of one identity, keyed by callee:
// an identity can be in at most one non-idle call at a time.
type CallPhase int

const (
	PhaseIdle CallPhase = iota
	PhaseRinging
	PhaseActive
)

func (p CallPhase) String() string {
	switch p {
	case PhaseRinging:
		return "ringing"
	case PhaseActive:
		return "active"
	default:
		return "idle"
	}
}

type callState struct {
	phase CallPhase
	peer  domain.UserID
	kind  domain.CallKind
	since time.Time
}

// Calls is the call lifecycle coordinator. It interprets the four
// lifecycle messages (initiate/accept/reject/end); offers, answers and
// candidates pass through the relay without touching it.
type Calls struct {
	mu     sync.Mutex
	relay  *Relay
	states map[domain.UserID]callState
}

func NewCalls(relay *Relay) *Calls {
	return &Calls{relay: relay, states: make(map[domain.UserID]callState)}
}

// Initiate rings every target that is currently idle. A target already
// ringing or in a call yields an immediate synthetic reject back to the
// caller without disturbing the target's state.
func (c *Calls) Initiate(caller domain.UserID, callerName string, kind domain.CallKind, targets []domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, target := range targets {
		if target == caller {
			continue
		}
		if st := c.states[target]; st.phase != PhaseIdle {
			log.Info().Str("module", "app.calls").Str("caller", string(caller)).
				Str("target", string(target)).Str("phase", st.phase.String()).Msg("target busy, synthetic reject")
			c.relay.Send(caller, protocol.CallResult{Type: protocol.TypeCallRejected, From: target})
			continue
		}
		c.states[target] = callState{phase: PhaseRinging, peer: caller, kind: kind, since: time.Now()}
		c.relay.Send(target, protocol.IncomingCall{
			Type:        protocol.TypeIncomingCall,
			From:        caller,
			DisplayName: callerName,
			Kind:        kind,
		})
	}
}

// Accept moves callee from Ringing to Active and notifies the caller.
// Anything else (duplicate accept, accept after end, wrong caller) is a
// silent no-op; the error is returned for logging only.
func (c *Calls) Accept(callee, caller domain.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[callee]
	if st.phase != PhaseRinging || st.peer != caller {
		log.Debug().Str("module", "app.calls").Str("callee", string(callee)).
			Str("caller", string(caller)).Str("phase", st.phase.String()).Msg("accept ignored")
		return core.ErrInvalidTransition
	}
	now := time.Now()
	c.states[callee] = callState{phase: PhaseActive, peer: caller, kind: st.kind, since: now}
	c.states[caller] = callState{phase: PhaseActive, peer: callee, kind: st.kind, since: now}
	c.relay.Send(caller, protocol.CallResult{Type: protocol.TypeCallAccepted, From: callee})
	return nil
}

// Reject returns callee to Idle and notifies the caller, who must drop
// any local session state immediately. Duplicates are no-ops.
func (c *Calls) Reject(callee, caller domain.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[callee]
	if st.phase != PhaseRinging || st.peer != caller {
		log.Debug().Str("module", "app.calls").Str("callee", string(callee)).
			Str("caller", string(caller)).Str("phase", st.phase.String()).Msg("reject ignored")
		return core.ErrInvalidTransition
	}
	delete(c.states, callee)
	c.relay.Send(caller, protocol.CallResult{Type: protocol.TypeCallRejected, From: callee})
	return nil
}

// End terminates the call between from and target, relaying call-ended
// to the other party. Works from Ringing too, so a caller can cancel
// before the callee answers.
func (c *Calls) End(from, target domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st := c.states[from]; st.phase != PhaseIdle && st.peer == target {
		delete(c.states, from)
	}
	if st := c.states[target]; st.phase != PhaseIdle && st.peer == from {
		delete(c.states, target)
	}
	c.relay.Send(target, protocol.CallResult{Type: protocol.TypeCallEnded, From: from})
}

// EndRoom is the room-scoped variant: call-ended is broadcast to the
// rest of the room and every party paired with from is reset.
func (c *Calls) EndRoom(from domain.UserID, room domain.RoomID) {
	c.mu.Lock()
	delete(c.states, from)
	for id, st := range c.states {
		if st.peer == from {
			delete(c.states, id)
		}
	}
	c.mu.Unlock()
	c.relay.BroadcastRoom(room, from, protocol.CallResult{Type: protocol.TypeCallEnded, From: from})
}

// OnDisconnect resets id and synthesizes an end or reject for whoever
// was ringing or talking with it. Idempotent with explicit end/reject
// that may race the disconnect.
func (c *Calls) OnDisconnect(id domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[id]; ok {
		delete(c.states, id)
		// A ringing callee going away looks like a reject to the caller;
		// the active case is handled by the peer scan below.
		if st.phase == PhaseRinging {
			c.relay.Send(st.peer, protocol.CallResult{Type: protocol.TypeCallRejected, From: id})
		}
	}
	for other, st := range c.states {
		if st.peer != id {
			continue
		}
		delete(c.states, other)
		switch st.phase {
		case PhaseRinging:
			c.relay.Send(other, protocol.CallResult{Type: protocol.TypeCallRejected, From: id})
		case PhaseActive:
			c.relay.Send(other, protocol.CallResult{Type: protocol.TypeCallEnded, From: id})
		}
	}
}

// Phase reports the current phase and peer for id. Read-only, for
// handlers and tests.
func (c *Calls) Phase(id domain.UserID) (CallPhase, domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[id]
	return st.phase, st.peer
}
