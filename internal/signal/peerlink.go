// Package signal brokers the WebRTC handshake between the two ends of a
// peer link. It tracks negotiation state and buffers trickled ICE
// candidates; it never inspects SDP contents.
package signal

import (
	"github.com/pion/webrtc/v4"

	"interviewhub/backend/internal/core"
)

type LinkState string

const (
	LinkIdle      LinkState = "idle"
	LinkOfferSent LinkState = "offer-sent"
	LinkConnected LinkState = "connected"
	LinkClosed    LinkState = "closed"
)

// pairKey identifies the unordered participant pair of a link.
type pairKey struct {
	lo, hi core.SessionID
}

func makePair(a, b core.SessionID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// PeerLink is one candidate connection between two participants. Exactly one
// exists per unordered pair per room; it is created by the first offer and
// destroyed when either side disconnects.
type PeerLink struct {
	Initiator core.SessionID
	Responder core.SessionID
	State     LinkState

	// A candidate is only applicable once its receiver holds the matching
	// remote description, i.e. once the offer (initiator's candidates) or
	// the answer (responder's candidates) has been relayed.
	offerDelivered  bool
	answerDelivered bool
	toResponder     []webrtc.ICECandidateInit
	toInitiator     []webrtc.ICECandidateInit
}

// queue buffers cand until the direction away from sender becomes deliverable.
// Returns false when the candidate can be relayed immediately instead.
func (l *PeerLink) queue(from core.SessionID, cand webrtc.ICECandidateInit) bool {
	switch from {
	case l.Initiator:
		if l.offerDelivered {
			return false
		}
		l.toResponder = append(l.toResponder, cand)
	case l.Responder:
		if l.answerDelivered {
			return false
		}
		l.toInitiator = append(l.toInitiator, cand)
	}
	return true
}

func (l *PeerLink) other(sid core.SessionID) core.SessionID {
	if sid == l.Initiator {
		return l.Responder
	}
	return l.Initiator
}
