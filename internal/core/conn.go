package core

import "interviewhub/backend/internal/domain"

// Frame is a raw wire payload, already JSON-encoded.
type Frame []byte

// SessionID is the connection handle of one participant.
type SessionID string

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a domain.Participant and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Participant() *domain.Participant
	Signal() SignalConnection
}

type memberSession struct {
	participant *domain.Participant
	conn        SignalConnection
}

func NewMemberSession(p *domain.Participant, conn SignalConnection) MemberSession {
	return &memberSession{participant: p, conn: conn}
}

func (m *memberSession) Participant() *domain.Participant { return m.participant }
func (m *memberSession) Signal() SignalConnection          { return m.conn }

// MemberDTO is a read-only view for wire replies (no transport fields).
type MemberDTO struct {
	SID    SessionID     `json:"id"`
	UserID domain.UserID `json:"userId"`
}

// PublishResult reports delivery stats/backpressure to the gateway.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}
