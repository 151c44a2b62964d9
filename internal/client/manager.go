package client

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
)

// RemoteTrackFunc reports the remote media of one peer session. Invoked
// exactly once per session; the sole channel by which successful
// negotiation is reported.
type RemoteTrackFunc func(remote domain.UserID, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// CandidateFunc forwards a locally gathered candidate toward remote.
type CandidateFunc func(remote domain.UserID, candidate webrtc.ICECandidateInit)

// CaptureFunc acquires the shared local capture. Swappable in tests.
type CaptureFunc func(kind domain.CallKind) (*LocalMedia, error)

// pendingSignals buffers negotiation messages that arrived before the
// session object existed — a real race under concurrent signaling. They
// are replayed on session creation, never dropped.
type pendingSignals struct {
	answer     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
}

// Manager owns one negotiated session per remote participant of the
// current call. It mediates local capture, multiplexes negotiation
// events by remote identity and guarantees full teardown on call end.
type Manager struct {
	cfg     webrtc.Configuration
	capture CaptureFunc

	mu       sync.Mutex
	media    *LocalMedia
	sessions map[domain.UserID]*peerSession
	pending  map[domain.UserID]*pendingSignals

	onTrack     RemoteTrackFunc
	onCandidate CandidateFunc
}

func NewManager(stunServers []string) *Manager {
	cfg := webrtc.Configuration{}
	if len(stunServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
	}
	return &Manager{
		cfg:      cfg,
		capture:  captureLocalMedia,
		sessions: make(map[domain.UserID]*peerSession),
		pending:  make(map[domain.UserID]*pendingSignals),
	}
}

// OnRemoteTrack sets the remote-media callback. Set before opening
// sessions.
func (m *Manager) OnRemoteTrack(fn RemoteTrackFunc) { m.onTrack = fn }

// OnCandidate sets the outbound-candidate callback. Set before opening
// sessions.
func (m *Manager) OnCandidate(fn CandidateFunc) { m.onCandidate = fn }

// SetCapture replaces the capture function. Used by tests and by hosts
// that source media elsewhere.
func (m *Manager) SetCapture(fn CaptureFunc) { m.capture = fn }

// AcquireLocalMedia opens the single shared capture for this call. A
// second acquire while the handle is live is a no-op: all peer sessions
// share one capture regardless of how many remotes are negotiated.
func (m *Manager) AcquireLocalMedia(kind domain.CallKind) error {
	m.mu.Lock()
	if m.media != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	// Capture can suspend for real time (permission prompts); do not
	// hold the manager lock across it.
	media, err := m.capture(kind)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.media != nil {
		media.Stop()
		return nil
	}
	m.media = media
	return nil
}

func (m *Manager) newPeerConnection() (*webrtc.PeerConnection, error) {
	if m.media != nil && m.media.api != nil {
		return m.media.api.NewPeerConnection(m.cfg)
	}
	return webrtc.NewPeerConnection(m.cfg)
}

// newSession creates and registers the peer session for remote, wiring
// callbacks and attaching the shared local tracks. Replaces any prior
// session for the same remote. Returns the drained pending buffer.
func (m *Manager) newSession(remote domain.UserID, role Role) (*peerSession, *pendingSignals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pc, err := m.newPeerConnection()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
	}

	sess := &peerSession{remote: remote, role: role, pc: pc}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil && m.onCandidate != nil {
			m.onCandidate(remote, c.ToJSON())
		}
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		sess.trackOnce.Do(func() {
			log.Info().Str("module", "client.manager").Str("remote", string(remote)).
				Str("kind", track.Kind().String()).Msg("remote track")
			if m.onTrack != nil {
				m.onTrack(remote, track, receiver)
			}
		})
	})

	if m.media != nil {
		for _, t := range m.media.Tracks() {
			if _, err := pc.AddTrack(t); err != nil {
				_ = pc.Close()
				return nil, nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
			}
		}
	} else {
		// No local capture: receive-only transceivers keep valid m-lines.
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				_ = pc.Close()
				return nil, nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
			}
		}
	}

	if old, ok := m.sessions[remote]; ok {
		log.Info().Str("module", "client.manager").Str("remote", string(remote)).Msg("replacing session")
		old.close()
	}
	m.sessions[remote] = sess

	pend := m.pending[remote]
	delete(m.pending, remote)
	return sess, pend, nil
}

func (m *Manager) replay(sess *peerSession, pend *pendingSignals) error {
	if pend == nil {
		return nil
	}
	if pend.answer != nil {
		if err := sess.applyRemote(*pend.answer); err != nil {
			return err
		}
	}
	for _, ci := range pend.candidates {
		if err := sess.addCandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "client.manager").Str("remote", string(sess.remote)).Msg("replay candidate")
		}
	}
	return nil
}

// OpenSession creates the offerer-side session toward remote and returns
// the offer descriptor to send through the relay.
func (m *Manager) OpenSession(remote domain.UserID) (*webrtc.SessionDescription, error) {
	sess, pend, err := m.newSession(remote, RoleOfferer)
	if err != nil {
		return nil, err
	}
	offer, err := sess.pc.CreateOffer(nil)
	if err != nil {
		m.CloseSession(remote)
		return nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
	}
	if err := sess.pc.SetLocalDescription(offer); err != nil {
		m.CloseSession(remote)
		return nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
	}
	if err := m.replay(sess, pend); err != nil {
		m.CloseSession(remote)
		return nil, err
	}
	return &offer, nil
}

// AnswerSession creates the answerer-side session for a received offer
// and returns the answer descriptor.
func (m *Manager) AnswerSession(remote domain.UserID, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	sess, pend, err := m.newSession(remote, RoleAnswerer)
	if err != nil {
		return nil, err
	}
	if err := sess.applyRemote(offer); err != nil {
		m.CloseSession(remote)
		return nil, err
	}
	answer, err := sess.pc.CreateAnswer(nil)
	if err != nil {
		m.CloseSession(remote)
		return nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
	}
	if err := sess.pc.SetLocalDescription(answer); err != nil {
		m.CloseSession(remote)
		return nil, fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
	}
	if err := m.replay(sess, pend); err != nil {
		m.CloseSession(remote)
		return nil, err
	}
	return &answer, nil
}

// AcceptRemoteDescriptor routes an answer to its session by remote
// identity, buffering it when the session does not exist yet.
func (m *Manager) AcceptRemoteDescriptor(remote domain.UserID, desc webrtc.SessionDescription) error {
	m.mu.Lock()
	sess, ok := m.sessions[remote]
	if !ok {
		p := m.pendingFor(remote)
		p.answer = &desc
		m.mu.Unlock()
		log.Debug().Str("module", "client.manager").Str("remote", string(remote)).Msg("descriptor buffered")
		return nil
	}
	m.mu.Unlock()
	return sess.applyRemote(desc)
}

// AddRemoteCandidate routes a candidate to its session, buffering it
// when the session does not exist yet.
func (m *Manager) AddRemoteCandidate(remote domain.UserID, ci webrtc.ICECandidateInit) error {
	m.mu.Lock()
	sess, ok := m.sessions[remote]
	if !ok {
		p := m.pendingFor(remote)
		p.candidates = append(p.candidates, ci)
		m.mu.Unlock()
		log.Debug().Str("module", "client.manager").Str("remote", string(remote)).Msg("candidate buffered")
		return nil
	}
	m.mu.Unlock()
	return sess.addCandidate(ci)
}

// pendingFor must be called with m.mu held.
func (m *Manager) pendingFor(remote domain.UserID) *pendingSignals {
	p, ok := m.pending[remote]
	if !ok {
		p = &pendingSignals{}
		m.pending[remote] = p
	}
	return p
}

// CloseSession tears down the session for one remote. The shared local
// capture is released once no session references it.
func (m *Manager) CloseSession(remote domain.UserID) {
	m.mu.Lock()
	sess, ok := m.sessions[remote]
	delete(m.sessions, remote)
	delete(m.pending, remote)
	var media *LocalMedia
	if len(m.sessions) == 0 {
		media = m.media
		m.media = nil
	}
	m.mu.Unlock()

	if ok {
		sess.close()
	}
	if media != nil {
		media.Stop()
	}
}

// CloseAll is the deterministic one-pass teardown: every session closed,
// every buffer dropped, the shared capture stopped exactly once.
// Idempotent, safe with zero open sessions and while negotiation is in
// flight — in-flight work is abandoned, not awaited.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	media := m.media
	m.sessions = make(map[domain.UserID]*peerSession)
	m.pending = make(map[domain.UserID]*pendingSignals)
	m.media = nil
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	if media != nil {
		media.Stop()
	}
}

// ToggleLocalAudio flips the shared audio state for every open session.
func (m *Manager) ToggleLocalAudio() bool {
	m.mu.Lock()
	media := m.media
	m.mu.Unlock()
	if media == nil {
		return false
	}
	return media.ToggleAudio()
}

func (m *Manager) ToggleLocalVideo() bool {
	m.mu.Lock()
	media := m.media
	m.mu.Unlock()
	if media == nil {
		return false
	}
	return media.ToggleVideo()
}

func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
