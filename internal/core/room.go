package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrNoSuchMember = errors.New("no such member")

// Room is a threadsafe in-memory participant set.
// It never closes adapter-owned resources.
type Room struct {
	key       string
	createdAt time.Time

	mu      sync.RWMutex
	members map[SessionID]MemberSession
	order   []SessionID // join order, first entry is the elected host
}

func newRoom(key string) *Room {
	return &Room{
		key:       key,
		createdAt: time.Now(),
		members:   make(map[SessionID]MemberSession),
	}
}

func (r *Room) Key() string          { return r.key }
func (r *Room) CreatedAt() time.Time { return r.createdAt }

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Room) Get(sid SessionID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.members[sid]
	return ms, ok
}

// Others returns every current member except self, in join order.
func (r *Room) Others(self SessionID) []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for _, sid := range r.order {
		if sid == self {
			continue
		}
		ms, ok := r.members[sid]
		if !ok {
			continue
		}
		out = append(out, MemberDTO{SID: sid, UserID: ms.Participant().ID})
	}
	return out
}

// Oldest returns the earliest-joined member still present.
func (r *Room) Oldest() (SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return "", false
	}
	return r.order[0], true
}

func (r *Room) add(sid SessionID, ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sid]; !ok {
		r.order = append(r.order, sid)
	}
	r.members[sid] = ms
	log.Info().Str("module", "core.room").Str("room", r.key).Str("sid", string(sid)).Msg("member added")
}

func (r *Room) remove(sid SessionID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sid]; !ok {
		return len(r.members)
	}
	delete(r.members, sid)
	for i, id := range r.order {
		if id == sid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.room").Str("room", r.key).Str("sid", string(sid)).Msg("member removed")
	return len(r.members)
}

// Broadcast fans data out to every member except from. A member whose send
// buffer is full is reported as dropped, never waited on.
func (r *Room) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.members {
		if sid == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", r.key).Str("from", string(from)).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// SendTo delivers data to a single member.
func (r *Room) SendTo(sid SessionID, data Frame) error {
	r.mu.RLock()
	ms, ok := r.members[sid]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSuchMember
	}
	return ms.Signal().TrySend(data)
}
