package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

// Relay is the single-hop, fire-and-forget message router. A message to
// an identity that is not currently registered is dropped, not deferred;
// senders get no acknowledgment either way.
type Relay struct {
	presence *Presence
	rooms    *Rooms
}

func NewRelay(presence *Presence, rooms *Rooms) *Relay {
	return &Relay{presence: presence, rooms: rooms}
}

// Send forwards v to target's current connection. Returns false on drop;
// drops are logged, never surfaced as errors.
func (r *Relay) Send(target domain.UserID, v any) bool {
	conn, ok := r.presence.Lookup(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("target", string(target)).Msg("target unreachable, dropped")
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal")
		return false
	}
	if err := conn.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("target", string(target)).Msg("send failed, dropped")
		return false
	}
	return true
}

// SendTo fans v out to the given identities, skipping except. Stale or
// backpressured handles are treated as drops, not errors.
func (r *Relay) SendTo(ids []domain.UserID, except domain.UserID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal")
		return
	}
	for _, id := range ids {
		if id == except {
			continue
		}
		conn, ok := r.presence.Lookup(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(b); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("target", string(id)).Msg("broadcast drop")
		}
	}
}

// BroadcastRoom fans v out to the room's current member snapshot.
func (r *Relay) BroadcastRoom(room domain.RoomID, except domain.UserID, v any) {
	r.SendTo(r.rooms.Members(room), except, v)
}
