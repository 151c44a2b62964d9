package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/domain"
)

// RoomSnapshot is the member list of one room, captured under the
// tracker lock so broadcasts never observe a half-mutated set.
type RoomSnapshot struct {
	Room    domain.RoomID
	Members []domain.UserID
}

// Rooms tracks room membership. Membership is advisory for presence
// broadcasts, not an access-control boundary: any authenticated identity
// may join any room id it is given.
type Rooms struct {
	mu      sync.Mutex
	members map[domain.RoomID]map[domain.UserID]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{members: make(map[domain.RoomID]map[domain.UserID]struct{})}
}

// Join adds id to room, idempotent, and returns the resulting member
// list plus whether id was already present.
func (r *Rooms) Join(room domain.RoomID, id domain.UserID) ([]domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[room]
	if !ok {
		set = make(map[domain.UserID]struct{})
		r.members[room] = set
	}
	_, already := set[id]
	set[id] = struct{}{}
	if !already {
		log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(id)).Msg("joined")
	}
	return snapshotLocked(set), already
}

// Leave removes id from room, idempotent on absence, and returns the
// remaining member list plus whether id was a member.
func (r *Rooms) Leave(room domain.RoomID, id domain.UserID) ([]domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[room]
	if !ok {
		return nil, false
	}
	_, was := set[id]
	delete(set, id)
	if len(set) == 0 {
		delete(r.members, room)
	}
	if was {
		log.Info().Str("module", "app.rooms").Str("room", string(room)).Str("user", string(id)).Msg("left")
	}
	return snapshotLocked(set), was
}

func (r *Rooms) Members(room domain.RoomID) []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return snapshotLocked(r.members[room])
}

// DropAll removes id from every room it is part of. Disconnect is an
// implicit leave from all rooms; the returned snapshots let the caller
// fire the same broadcasts an explicit leave would.
func (r *Rooms) DropAll(id domain.UserID) []RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RoomSnapshot
	for room, set := range r.members {
		if _, ok := set[id]; !ok {
			continue
		}
		delete(set, id)
		out = append(out, RoomSnapshot{Room: room, Members: snapshotLocked(set)})
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	if len(out) > 0 {
		log.Info().Str("module", "app.rooms").Str("user", string(id)).Int("rooms", len(out)).Msg("dropped from all rooms")
	}
	return out
}

func snapshotLocked(set map[domain.UserID]struct{}) []domain.UserID {
	out := make([]domain.UserID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
