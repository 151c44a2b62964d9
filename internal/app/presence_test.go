package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRegisterLookup(t *testing.T) {
	p := NewPresence()
	conn := &fakeConn{}

	p.Register("alice", conn)

	got, ok := p.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, conn, got.(*fakeConn))
	assert.True(t, p.Online("alice"))
	assert.False(t, p.Online("bob"))
}

func TestPresenceLastConnectWins(t *testing.T) {
	p := NewPresence()
	first := &fakeConn{}
	second := &fakeConn{}

	p.Register("alice", first)
	p.Register("alice", second)

	got, ok := p.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got.(*fakeConn))
}

func TestPresenceStaleUnregisterIgnored(t *testing.T) {
	p := NewPresence()
	stale := &fakeConn{}
	fresh := &fakeConn{}

	p.Register("alice", stale)
	p.Register("alice", fresh)

	// The old connection's teardown races in after the reconnect; it
	// must not remove the newer handle.
	assert.False(t, p.Unregister("alice", stale))
	assert.True(t, p.Online("alice"))

	assert.True(t, p.Unregister("alice", fresh))
	assert.False(t, p.Online("alice"))
	assert.False(t, p.Unregister("alice", fresh))
}
