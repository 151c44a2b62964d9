package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
)

// Presence maps identity to its live signaling connection. Single source
// of truth for "is this user currently reachable".
type Presence struct {
	mu    sync.RWMutex
	conns map[domain.UserID]core.SignalConnection
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[domain.UserID]core.SignalConnection)}
}

// Register stores conn as the one live handle for id. Last connect wins:
// a reconnect unconditionally replaces the previous handle, which becomes
// stale and is no longer targeted by the relay.
func (p *Presence) Register(id domain.UserID, conn core.SignalConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[id] = conn
	log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("registered")
}

func (p *Presence) Lookup(id domain.UserID) (core.SignalConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conn, ok := p.conns[id]
	return conn, ok
}

// Unregister removes the entry only if the stored handle is still conn.
// A disconnect of a stale connection racing a reconnect must not clobber
// the newer handle.
func (p *Presence) Unregister(id domain.UserID, conn core.SignalConnection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored, ok := p.conns[id]
	if !ok || stored != conn {
		log.Debug().Str("module", "app.presence").Str("user", string(id)).Msg("stale unregister ignored")
		return false
	}
	delete(p.conns, id)
	log.Info().Str("module", "app.presence").Str("user", string(id)).Msg("unregistered")
	return true
}

func (p *Presence) Online(id domain.UserID) bool {
	_, ok := p.Lookup(id)
	return ok
}
