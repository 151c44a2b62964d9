package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

// CallLogReporter receives the finished call record. The write itself
// happens out-of-band through the call-log endpoint.
type CallLogReporter func(entry domain.CallLog)

// CallRuntime drives the client side of the call lifecycle: it owns the
// peer connection manager and turns relay messages into session
// operations. The callee opens the session after accepting, mirroring
// the initiate direction in reverse; the caller answers.
type CallRuntime struct {
	c      *Client
	mgr    *Manager
	report CallLogReporter

	mu           sync.Mutex
	engaged      bool
	answered     bool
	room         domain.RoomID
	kind         domain.CallKind
	startedAt    time.Time
	acceptedAt   time.Time
	incomingKind map[domain.UserID]domain.CallKind
}

func newCallRuntime(c *Client, stunServers []string, report CallLogReporter) *CallRuntime {
	r := &CallRuntime{
		c:            c,
		mgr:          NewManager(stunServers),
		report:       report,
		incomingKind: make(map[domain.UserID]domain.CallKind),
	}
	r.mgr.OnCandidate(func(remote domain.UserID, ci webrtc.ICECandidateInit) {
		b, err := json.Marshal(ci)
		if err != nil {
			return
		}
		if err := c.send(protocol.Candidate{Type: protocol.TypeCandidate, Target: remote, Candidate: b}); err != nil {
			log.Warn().Err(err).Str("module", "client.call").Msg("send candidate")
		}
	})
	r.mgr.OnRemoteTrack(func(remote domain.UserID, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if c.events.OnRemoteTrack != nil {
			c.events.OnRemoteTrack(remote, track)
		}
	})
	return r
}

// Manager exposes the peer connection manager, mostly for toggles.
func (r *CallRuntime) Manager() *Manager { return r.mgr }

// Start acquires local media and rings the room.
func (r *CallRuntime) Start(room domain.RoomID, kind domain.CallKind) error {
	if err := r.mgr.AcquireLocalMedia(kind); err != nil {
		return err
	}
	r.mu.Lock()
	r.engaged = true
	r.answered = false
	r.room = room
	r.kind = kind
	r.startedAt = time.Now()
	r.mu.Unlock()
	return r.c.send(protocol.InitiateCall{
		Type:        protocol.TypeInitiateCall,
		Room:        room,
		Kind:        kind,
		DisplayName: r.c.displayName,
	})
}

// Accept answers a ringing call: acquire media, tell the caller, then
// open the session toward them and send the offer.
func (r *CallRuntime) Accept(caller domain.UserID) error {
	r.mu.Lock()
	kind, ok := r.incomingKind[caller]
	if !ok {
		kind = domain.CallAudio
	}
	delete(r.incomingKind, caller)
	r.mu.Unlock()

	if err := r.mgr.AcquireLocalMedia(kind); err != nil {
		return err
	}
	if err := r.c.send(protocol.CallControl{Type: protocol.TypeAcceptCall, Target: caller}); err != nil {
		return err
	}

	offer, err := r.mgr.OpenSession(caller)
	if err != nil {
		return err
	}
	b, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	now := time.Now()
	r.mu.Lock()
	r.engaged = true
	r.answered = true
	r.kind = kind
	r.startedAt = now
	r.acceptedAt = now
	r.mu.Unlock()
	return r.c.send(protocol.Descriptor{Type: protocol.TypeOffer, Target: caller, Descriptor: b})
}

// Reject declines a ringing call without touching any session state.
func (r *CallRuntime) Reject(caller domain.UserID) error {
	r.mu.Lock()
	delete(r.incomingKind, caller)
	r.mu.Unlock()
	return r.c.send(protocol.CallControl{Type: protocol.TypeRejectCall, Target: caller})
}

// HangUp ends the call toward one identity.
func (r *CallRuntime) HangUp(target domain.UserID) error {
	err := r.c.send(protocol.EndCall{Type: protocol.TypeEndCall, Target: target})
	r.finish(domain.CallEnded)
	return err
}

// HangUpRoom ends the call for the whole room.
func (r *CallRuntime) HangUpRoom(room domain.RoomID) error {
	err := r.c.send(protocol.EndCall{Type: protocol.TypeEndCall, Room: room})
	r.finish(domain.CallEnded)
	return err
}

func (r *CallRuntime) ToggleAudio() bool { return r.mgr.ToggleLocalAudio() }
func (r *CallRuntime) ToggleVideo() bool { return r.mgr.ToggleLocalVideo() }

func (r *CallRuntime) onIncoming(from domain.UserID, kind domain.CallKind) {
	r.mu.Lock()
	r.incomingKind[from] = kind
	r.mu.Unlock()
}

func (r *CallRuntime) onAccepted(domain.UserID) {
	r.mu.Lock()
	if r.engaged && !r.answered {
		r.answered = true
		r.acceptedAt = time.Now()
	}
	r.mu.Unlock()
}

// onRejected drops the one rejected peer. When nobody answered and no
// session survives, the whole attempt is over.
func (r *CallRuntime) onRejected(from domain.UserID) {
	r.mgr.CloseSession(from)
	r.mu.Lock()
	failed := r.engaged && !r.answered
	r.mu.Unlock()
	if failed && r.mgr.SessionCount() == 0 {
		r.finish(domain.CallRejected)
	}
}

func (r *CallRuntime) onEnded(domain.UserID) {
	r.finish(domain.CallEnded)
}

func (r *CallRuntime) onOffer(from domain.UserID, raw json.RawMessage) {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err != nil {
		log.Error().Err(err).Str("module", "client.call").Msg("bad offer descriptor")
		return
	}
	answer, err := r.mgr.AnswerSession(from, sd)
	if err != nil {
		// One broken negotiation never takes down sibling sessions.
		log.Error().Err(err).Str("module", "client.call").Str("remote", string(from)).Msg("answer session")
		return
	}
	b, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := r.c.send(protocol.Descriptor{Type: protocol.TypeAnswer, Target: from, Descriptor: b}); err != nil {
		log.Warn().Err(err).Str("module", "client.call").Msg("send answer")
	}
}

func (r *CallRuntime) onAnswer(from domain.UserID, raw json.RawMessage) {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err != nil {
		log.Error().Err(err).Str("module", "client.call").Msg("bad answer descriptor")
		return
	}
	if err := r.mgr.AcceptRemoteDescriptor(from, sd); err != nil {
		log.Error().Err(err).Str("module", "client.call").Str("remote", string(from)).Msg("apply answer")
	}
}

func (r *CallRuntime) onCandidate(from domain.UserID, raw json.RawMessage) {
	var ci webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &ci); err != nil {
		log.Error().Err(err).Str("module", "client.call").Msg("bad candidate")
		return
	}
	if err := r.mgr.AddRemoteCandidate(from, ci); err != nil {
		log.Warn().Err(err).Str("module", "client.call").Str("remote", string(from)).Msg("add candidate")
	}
}

// finish reports the record once and tears everything down. Duplicate
// end signals racing a local hangup collapse into the first call.
func (r *CallRuntime) finish(status domain.CallStatus) {
	r.mu.Lock()
	if !r.engaged {
		r.mu.Unlock()
		r.mgr.CloseAll()
		return
	}
	duration := 0
	if r.answered {
		duration = int(time.Since(r.acceptedAt).Seconds())
	}
	entry := domain.CallLog{
		Room:      r.room,
		Kind:      r.kind,
		Status:    status,
		Duration:  duration,
		StartedAt: r.startedAt,
		EndedAt:   time.Now(),
	}
	r.engaged = false
	r.answered = false
	report := r.report
	r.mu.Unlock()

	if report != nil {
		report(entry)
	}
	r.mgr.CloseAll()
}

// shutdown releases everything on connection teardown without reporting.
func (r *CallRuntime) shutdown() {
	r.mu.Lock()
	r.engaged = false
	r.mu.Unlock()
	r.mgr.CloseAll()
}
