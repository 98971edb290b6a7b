package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"interviewhub/backend/internal/domain"
)

// Memory keeps attempts and rooms in process memory. Used in tests and as a
// fallback when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	attempts map[string]*domain.Attempt
	events   map[string][]domain.EditEvent
	rooms    map[domain.RoomID]*domain.VideoRoom
}

func NewMemory() *Memory {
	return &Memory{
		attempts: make(map[string]*domain.Attempt),
		events:   make(map[string][]domain.EditEvent),
		rooms:    make(map[domain.RoomID]*domain.VideoRoom),
	}
}

func (m *Memory) LoadAttempt(_ context.Context, key domain.CollabKey) (*domain.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) SaveCode(_ context.Context, key domain.CollabKey, code, language string, ev domain.EditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.attempt(key)
	a.FinalCode = code
	a.FinalLanguage = language
	a.UpdatedAt = time.Now()
	m.events[key.String()] = append(m.events[key.String()], ev)
	return nil
}

func (m *Memory) SaveWhiteboard(_ context.Context, key domain.CollabKey, elements []json.RawMessage, ev domain.EditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.attempt(key)
	a.FinalWhiteboard = make([]json.RawMessage, len(elements))
	copy(a.FinalWhiteboard, elements)
	a.UpdatedAt = time.Now()
	m.events[key.String()] = append(m.events[key.String()], ev)
	return nil
}

// Events returns the append-only log for a key, in insertion order.
func (m *Memory) Events(key domain.CollabKey) []domain.EditEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.EditEvent, len(m.events[key.String()]))
	copy(out, m.events[key.String()])
	return out
}

func (m *Memory) attempt(key domain.CollabKey) *domain.Attempt {
	a, ok := m.attempts[key.String()]
	if !ok {
		a = &domain.Attempt{Key: key, FinalWhiteboard: []json.RawMessage{}}
		m.attempts[key.String()] = a
	}
	return a
}

func (m *Memory) CreateRoom(_ context.Context, room *domain.VideoRoom) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; ok {
		return ErrAlreadyExists
	}
	cp := *room
	m.rooms[room.ID] = &cp
	return nil
}

func (m *Memory) GetRoom(_ context.Context, id domain.RoomID) (*domain.VideoRoom, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) AddParticipant(_ context.Context, id domain.RoomID, user domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return ErrNotFound
	}
	for _, u := range r.Participants {
		if u == user {
			return nil
		}
	}
	r.Participants = append(r.Participants, user)
	return nil
}
