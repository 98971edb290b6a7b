package core

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry maps room keys to live rooms. Creating a room on first join and
// destroying it when the last member leaves happen under the registry lock,
// so concurrent joins and leaves on the same key never race the lifecycle.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Join admits sid into the room at key, creating the room if needed.
// The second result reports whether sid is the room's first member.
func (g *Registry) Join(key string, sid SessionID, ms MemberSession) (*Room, bool) {
	g.mu.Lock()
	room, ok := g.rooms[key]
	if !ok {
		room = newRoom(key)
		g.rooms[key] = room
		log.Info().Str("module", "core.registry").Str("room", key).Msg("room created")
	}
	first := room.MemberCount() == 0
	room.add(sid, ms)
	g.mu.Unlock()
	return room, first
}

// Leave removes sid from the room at key and destroys the room once empty.
// Returns the number of members remaining.
func (g *Registry) Leave(key string, sid SessionID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[key]
	if !ok {
		return 0
	}
	remaining := room.remove(sid)
	if remaining == 0 {
		delete(g.rooms, key)
		log.Info().Str("module", "core.registry").Str("room", key).Msg("room closed (empty)")
	}
	return remaining
}

func (g *Registry) Get(key string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[key]
	return room, ok
}

// ListOthers reflects every join and leave completed before the call.
func (g *Registry) ListOthers(key string, self SessionID) []MemberDTO {
	g.mu.RLock()
	room, ok := g.rooms[key]
	g.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.Others(self)
}

func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
