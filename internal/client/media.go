package client

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// LocalMedia is the one shared local capture for a call. Every peer
// session borrows its tracks; only the manager stops it, exactly once,
// no matter how many sessions referenced it.
type LocalMedia struct {
	tracks []webrtc.TrackLocal
	api    *webrtc.API // codec-aware factory when capture supplies encoded tracks
	stop   func()

	stopOnce sync.Once

	mu      sync.Mutex
	audioOn bool
	videoOn bool
}

func NewLocalMedia(tracks []webrtc.TrackLocal, api *webrtc.API, stop func()) *LocalMedia {
	return &LocalMedia{tracks: tracks, api: api, stop: stop, audioOn: true, videoOn: true}
}

func (m *LocalMedia) Tracks() []webrtc.TrackLocal { return m.tracks }

// Stop releases the capture. Safe to call any number of times.
func (m *LocalMedia) Stop() {
	m.stopOnce.Do(func() {
		if m.stop != nil {
			m.stop()
		}
	})
}

// ToggleAudio flips the shared audio state and returns the new value.
// All sessions share the one handle, so the flip affects every peer.
func (m *LocalMedia) ToggleAudio() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioOn = !m.audioOn
	return m.audioOn
}

func (m *LocalMedia) ToggleVideo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoOn = !m.videoOn
	return m.videoOn
}

func (m *LocalMedia) AudioOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioOn
}

func (m *LocalMedia) VideoOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videoOn
}
