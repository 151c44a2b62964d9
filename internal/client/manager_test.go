package client

import (
	"sync/atomic"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

// fakeCapture hands out a synthetic audio track and counts acquisitions
// and stops, so sharing and teardown invariants are observable.
type fakeCapture struct {
	acquired atomic.Int32
	stopped  atomic.Int32
}

func (f *fakeCapture) fn(domain.CallKind) (*LocalMedia, error) {
	f.acquired.Add(1)
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "capture")
	if err != nil {
		return nil, err
	}
	return NewLocalMedia([]webrtc.TrackLocal{track}, nil, func() { f.stopped.Add(1) }), nil
}

const hostCandidate = "candidate:1 1 udp 2130706433 127.0.0.1 54321 typ host"

func TestManagerOfflineNegotiation(t *testing.T) {
	callee := NewManager(nil)
	caller := NewManager(nil)
	capt := &fakeCapture{}
	callee.SetCapture(capt.fn)
	caller.SetCapture(capt.fn)
	require.NoError(t, callee.AcquireLocalMedia(domain.CallAudio))
	require.NoError(t, caller.AcquireLocalMedia(domain.CallAudio))

	offer, err := callee.OpenSession("alice")
	require.NoError(t, err)
	require.Equal(t, webrtc.SDPTypeOffer, offer.Type)

	answer, err := caller.AnswerSession("bob", *offer)
	require.NoError(t, err)
	require.Equal(t, webrtc.SDPTypeAnswer, answer.Type)

	require.NoError(t, callee.AcceptRemoteDescriptor("alice", *answer))

	assert.Equal(t, 1, callee.SessionCount())
	assert.Equal(t, 1, caller.SessionCount())

	callee.CloseAll()
	caller.CloseAll()
	assert.Zero(t, callee.SessionCount())
	assert.Zero(t, caller.SessionCount())
}

func TestManagerBuffersSignalsBeforeSession(t *testing.T) {
	callee := NewManager(nil)
	caller := NewManager(nil)

	offer, err := callee.OpenSession("alice")
	require.NoError(t, err)

	// The callee's candidates race ahead of its offer: they reach the
	// caller before any session for "bob" exists and must be held, not
	// dropped.
	require.NoError(t, caller.AddRemoteCandidate("bob", webrtc.ICECandidateInit{Candidate: hostCandidate}))
	require.NoError(t, caller.AddRemoteCandidate("bob", webrtc.ICECandidateInit{Candidate: hostCandidate}))
	assert.Zero(t, caller.SessionCount())

	answer, err := caller.AnswerSession("bob", *offer)
	require.NoError(t, err)
	assert.Equal(t, 1, caller.SessionCount())

	// Mirror race on the callee side: the answer and a candidate are
	// routed by remote identity into the already-open session.
	require.NoError(t, callee.AcceptRemoteDescriptor("alice", *answer))
	require.NoError(t, callee.AddRemoteCandidate("alice", webrtc.ICECandidateInit{Candidate: hostCandidate}))

	callee.CloseAll()
	caller.CloseAll()
}

func TestManagerAnswerBufferedBeforeOpen(t *testing.T) {
	callee := NewManager(nil)
	caller := NewManager(nil)

	// Stage a full answer exchange to obtain a real descriptor.
	offer, err := callee.OpenSession("alice")
	require.NoError(t, err)
	answer, err := caller.AnswerSession("bob", *offer)
	require.NoError(t, err)
	callee.CloseAll()

	// Fresh callee: the answer arrives before OpenSession finished. It
	// is buffered and replayed when the session appears.
	fresh := NewManager(nil)
	require.NoError(t, fresh.AcceptRemoteDescriptor("alice", *answer))
	assert.Zero(t, fresh.SessionCount())

	_, err = fresh.OpenSession("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.SessionCount())

	fresh.CloseAll()
	caller.CloseAll()
}

func TestManagerSharesOneCapture(t *testing.T) {
	m := NewManager(nil)
	capt := &fakeCapture{}
	m.SetCapture(capt.fn)

	require.NoError(t, m.AcquireLocalMedia(domain.CallAudio))
	require.NoError(t, m.AcquireLocalMedia(domain.CallAudio))
	assert.Equal(t, int32(1), capt.acquired.Load())

	_, err := m.OpenSession("bob")
	require.NoError(t, err)
	_, err = m.OpenSession("carol")
	require.NoError(t, err)
	assert.Equal(t, 2, m.SessionCount())
	assert.Equal(t, int32(1), capt.acquired.Load())

	m.CloseAll()
	assert.Equal(t, int32(1), capt.stopped.Load())
}

func TestManagerCloseAllIdempotent(t *testing.T) {
	m := NewManager(nil)
	capt := &fakeCapture{}
	m.SetCapture(capt.fn)
	require.NoError(t, m.AcquireLocalMedia(domain.CallAudio))
	_, err := m.OpenSession("bob")
	require.NoError(t, err)

	m.CloseAll()
	m.CloseAll()
	m.CloseAll()

	assert.Zero(t, m.SessionCount())
	assert.Equal(t, int32(1), capt.stopped.Load())
}

func TestManagerCloseAllWithNoSessions(t *testing.T) {
	m := NewManager(nil)
	m.CloseAll()
	assert.Zero(t, m.SessionCount())
}

func TestManagerCloseSessionReleasesMediaAtZero(t *testing.T) {
	m := NewManager(nil)
	capt := &fakeCapture{}
	m.SetCapture(capt.fn)
	require.NoError(t, m.AcquireLocalMedia(domain.CallAudio))
	_, err := m.OpenSession("bob")
	require.NoError(t, err)
	_, err = m.OpenSession("carol")
	require.NoError(t, err)

	m.CloseSession("bob")
	assert.Zero(t, capt.stopped.Load(), "capture still referenced by carol's session")

	m.CloseSession("carol")
	assert.Equal(t, int32(1), capt.stopped.Load())
}

func TestManagerTogglesWithoutMedia(t *testing.T) {
	m := NewManager(nil)
	assert.False(t, m.ToggleLocalAudio())
	assert.False(t, m.ToggleLocalVideo())
}

func TestManagerTogglesFlipSharedState(t *testing.T) {
	m := NewManager(nil)
	capt := &fakeCapture{}
	m.SetCapture(capt.fn)
	require.NoError(t, m.AcquireLocalMedia(domain.CallVideo))

	assert.False(t, m.ToggleLocalAudio())
	assert.True(t, m.ToggleLocalAudio())
	assert.False(t, m.ToggleLocalVideo())
}
