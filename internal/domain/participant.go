package domain

import "errors"

const MaxUserIDLen = 64

var ErrUserIDInvalid = errors.New("user id empty or too long")

type UserID string

// Role only matters in video rooms: the first joiner is elected host and
// every later joiner opens exactly one peer link to it.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Participant is one connected member of a room. ID is the opaque external
// identity supplied by the caller; the connection handle lives in core.
type Participant struct {
	ID   UserID `json:"userId"`
	Role Role   `json:"role,omitempty"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(id UserID) (*Participant, error) {
	if len(id) == 0 || len(id) > MaxUserIDLen {
		return nil, ErrUserIDInvalid
	}
	return &Participant{ID: id, Role: RoleGuest}, nil
}
