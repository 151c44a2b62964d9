package client

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
)

// Role is the negotiation role of a peer session.
type Role string

const (
	RoleOfferer  Role = "offerer"
	RoleAnswerer Role = "answerer"
)

// peerSession is one negotiated media relationship with one remote
// identity. Candidates that arrive before the remote description is
// applied are queued inside the session and replayed afterwards.
type peerSession struct {
	remote domain.UserID
	role   Role
	pc     *webrtc.PeerConnection

	mu        sync.Mutex
	remoteSet bool
	queued    []webrtc.ICECandidateInit

	trackOnce sync.Once
	closeOnce sync.Once
}

func (s *peerSession) applyRemote(desc webrtc.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("%w: %v", core.ErrNegotiationFailed, err)
	}
	s.mu.Lock()
	s.remoteSet = true
	queued := s.queued
	s.queued = nil
	s.mu.Unlock()

	for _, ci := range queued {
		if err := s.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("remote", string(s.remote)).Msg("queued candidate")
		}
	}
	return nil
}

func (s *peerSession) addCandidate(ci webrtc.ICECandidateInit) error {
	s.mu.Lock()
	if !s.remoteSet {
		s.queued = append(s.queued, ci)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.pc.AddICECandidate(ci)
}

func (s *peerSession) close() {
	s.closeOnce.Do(func() {
		if err := s.pc.Close(); err != nil {
			log.Warn().Err(err).Str("module", "client.session").Str("remote", string(s.remote)).Msg("close")
		}
	})
}
