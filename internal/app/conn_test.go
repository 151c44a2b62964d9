package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

// fakeConn records every frame relayed to it. Setting fail simulates a
// backpressured connection.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   error
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// types decodes the envelope type of every received frame, in order.
func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(fr, &env))
		out = append(out, env.Type)
	}
	return out
}

// last decodes the most recent frame into v.
func (f *fakeConn) last(t *testing.T, v any) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames)
	require.NoError(t, json.Unmarshal(f.frames[len(f.frames)-1], v))
}
