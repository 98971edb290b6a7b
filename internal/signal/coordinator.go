package signal

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/core"
)

// orphan is a candidate that arrived before its peer link existed. It is
// buffered at the room, keyed by sender, and adopted when the link appears.
type orphan struct {
	to   core.SessionID
	cand webrtc.ICECandidateInit
}

type roomLinks struct {
	mu      sync.Mutex
	host    core.SessionID
	order   []core.SessionID
	links   map[pairKey]*PeerLink
	orphans map[core.SessionID][]orphan
}

// Coordinator owns per-room signaling state. All methods are decision-only:
// they mutate link state and report what the gateway should relay, they never
// touch a transport.
type Coordinator struct {
	mu    sync.RWMutex
	rooms map[string]*roomLinks
}

func NewCoordinator() *Coordinator {
	return &Coordinator{rooms: make(map[string]*roomLinks)}
}

func (c *Coordinator) room(key string) *roomLinks {
	c.mu.RLock()
	rl, ok := c.rooms[key]
	c.mu.RUnlock()
	if ok {
		return rl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rl, ok = c.rooms[key]; ok {
		return rl
	}
	rl = &roomLinks{
		links:   make(map[pairKey]*PeerLink),
		orphans: make(map[core.SessionID][]orphan),
	}
	c.rooms[key] = rl
	return rl
}

// Join records sid in the room's signaling state. The first joiner is
// elected host; every peer link must involve the host (star topology).
func (c *Coordinator) Join(key string, sid core.SessionID) (host core.SessionID, elected bool) {
	rl := c.room(key)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.order = append(rl.order, sid)
	if rl.host == "" {
		rl.host = sid
		elected = true
	}
	return rl.host, elected
}

func (c *Coordinator) Host(key string) (core.SessionID, bool) {
	c.mu.RLock()
	rl, ok := c.rooms[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.host, rl.host != ""
}

// Offer registers an offer from -> to. It creates the peer link on first
// offer, treats an offer on a connected link as renegotiation, and drops an
// offer arriving while a negotiation is already in flight (glare; the caller
// retries after a debounce). Returned candidates are from's buffered ones,
// now deliverable to the responder behind the relayed offer.
func (c *Coordinator) Offer(key string, from, to core.SessionID) (accept bool, flush []webrtc.ICECandidateInit) {
	rl := c.room(key)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if from != rl.host && to != rl.host {
		log.Warn().Str("module", "signal").Str("room", key).
			Str("from", string(from)).Str("to", string(to)).Msg("offer outside star topology, dropped")
		return false, nil
	}

	pk := makePair(from, to)
	link, ok := rl.links[pk]
	switch {
	case !ok:
		link = &PeerLink{Initiator: from, Responder: to, State: LinkIdle}
		rl.links[pk] = link
		rl.adoptOrphans(link)
	case link.State == LinkOfferSent:
		log.Warn().Str("module", "signal").Str("room", key).
			Str("from", string(from)).Msg("offer while negotiation in flight, dropped")
		return false, nil
	case link.State == LinkClosed:
		return false, nil
	}

	// Renegotiation keeps the pair's roles from the new offer's direction.
	link.Initiator = from
	link.Responder = to
	link.State = LinkOfferSent
	link.offerDelivered = true

	flush = link.toResponder
	link.toResponder = nil
	return true, flush
}

// Answer completes the handshake for the link between from and to. An answer
// with no matching offer in flight is discarded. Returned candidates are the
// responder's buffered ones, deliverable once the answer has been relayed.
func (c *Coordinator) Answer(key string, from, to core.SessionID) (accept bool, flush []webrtc.ICECandidateInit) {
	rl := c.room(key)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	link, ok := rl.links[makePair(from, to)]
	if !ok || link.State != LinkOfferSent || from != link.Responder {
		log.Warn().Str("module", "signal").Str("room", key).
			Str("from", string(from)).Msg("answer without pending offer, dropped")
		return false, nil
	}
	link.State = LinkConnected
	link.answerDelivered = true

	flush = link.toInitiator
	link.toInitiator = nil
	return true, flush
}

// Candidate decides whether a trickled candidate can be relayed now. If the
// receiving side does not yet hold the matching description the candidate is
// buffered on the link; if the link does not exist yet it is buffered at the
// room keyed by sender. Buffered candidates are flushed in arrival order.
func (c *Coordinator) Candidate(key string, from, to core.SessionID, cand webrtc.ICECandidateInit) (relay bool) {
	rl := c.room(key)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	link, ok := rl.links[makePair(from, to)]
	if !ok {
		rl.orphans[from] = append(rl.orphans[from], orphan{to: to, cand: cand})
		return false
	}
	return !link.queue(from, cand)
}

// adoptOrphans moves room-buffered candidates from either end onto the new
// link's queues, preserving arrival order. Caller holds rl.mu.
func (rl *roomLinks) adoptOrphans(link *PeerLink) {
	for _, sid := range []core.SessionID{link.Initiator, link.Responder} {
		peer := link.other(sid)
		kept := rl.orphans[sid][:0]
		for _, o := range rl.orphans[sid] {
			if o.to != peer {
				kept = append(kept, o)
				continue
			}
			if sid == link.Initiator {
				link.toResponder = append(link.toResponder, o.cand)
			} else {
				link.toInitiator = append(link.toInitiator, o.cand)
			}
		}
		if len(kept) == 0 {
			delete(rl.orphans, sid)
		} else {
			rl.orphans[sid] = kept
		}
	}
}

// LeaveResult reports the teardown fallout of one participant leaving.
type LeaveResult struct {
	ClosedPeers []core.SessionID
	NewHost     core.SessionID
	Reelected   bool
}

// Leave closes every link sid participates in and, when the host leaves,
// promotes the next-joined participant so the room's star stays rooted.
func (c *Coordinator) Leave(key string, sid core.SessionID) LeaveResult {
	c.mu.RLock()
	rl, ok := c.rooms[key]
	c.mu.RUnlock()
	if !ok {
		return LeaveResult{}
	}

	rl.mu.Lock()
	var res LeaveResult
	for pk, link := range rl.links {
		if pk.lo != sid && pk.hi != sid {
			continue
		}
		link.State = LinkClosed
		res.ClosedPeers = append(res.ClosedPeers, link.other(sid))
		delete(rl.links, pk)
	}
	delete(rl.orphans, sid)

	for i, id := range rl.order {
		if id == sid {
			rl.order = append(rl.order[:i], rl.order[i+1:]...)
			break
		}
	}

	if rl.host == sid {
		rl.host = ""
		if len(rl.order) > 0 {
			rl.host = rl.order[0]
			res.NewHost = rl.host
			res.Reelected = true
			log.Info().Str("module", "signal").Str("room", key).
				Str("host", string(rl.host)).Msg("host re-elected")
		}
	}

	empty := len(rl.order) == 0
	rl.mu.Unlock()

	if empty {
		c.mu.Lock()
		delete(c.rooms, key)
		c.mu.Unlock()
	}
	return res
}
