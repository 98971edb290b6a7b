// Package store persists Attempt records and room metadata. Persistence is
// best-effort from the engines' point of view: a failed write is logged and
// never rolls back what live participants already saw.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"interviewhub/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// AttemptStore holds the durable side of a collaboration room: the latest
// snapshot plus append-only per-kind event logs.
type AttemptStore interface {
	LoadAttempt(ctx context.Context, key domain.CollabKey) (*domain.Attempt, error)
	SaveCode(ctx context.Context, key domain.CollabKey, code, language string, ev domain.EditEvent) error
	SaveWhiteboard(ctx context.Context, key domain.CollabKey, elements []json.RawMessage, ev domain.EditEvent) error
}

// RoomStore backs the REST room lifecycle for video sessions.
type RoomStore interface {
	CreateRoom(ctx context.Context, room *domain.VideoRoom) error
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.VideoRoom, error)
	AddParticipant(ctx context.Context, id domain.RoomID, user domain.UserID) error
}
