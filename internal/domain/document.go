package domain

import (
	"encoding/json"
	"time"
)

// Document is the authoritative shared artifact of one collaboration room:
// a code buffer plus an ordered list of whiteboard elements. Whiteboard
// elements are opaque to the server and stored verbatim.
type Document struct {
	Code       string            `json:"code"`
	Language   string            `json:"language,omitempty"`
	Whiteboard []json.RawMessage `json:"whiteboard"`
}

func NewDocument() *Document {
	return &Document{Whiteboard: []json.RawMessage{}}
}

func (d *Document) Clone() Document {
	out := Document{Code: d.Code, Language: d.Language}
	out.Whiteboard = make([]json.RawMessage, len(d.Whiteboard))
	copy(out.Whiteboard, d.Whiteboard)
	return out
}

type EditKind string

const (
	EditCode       EditKind = "code"
	EditWhiteboard EditKind = "whiteboard"
)

// EditEvent is one incremental update from one participant, appended to the
// Attempt's event log in addition to mutating the live Document.
type EditEvent struct {
	Kind      EditKind        `json:"kind"`
	UserID    UserID          `json:"userId"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"event_data"`
}

// Attempt is the externally persisted history of a candidate's work on one
// question, keyed by the collaboration room's CollabKey.
type Attempt struct {
	Key             CollabKey
	FinalCode       string
	FinalLanguage   string
	FinalWhiteboard []json.RawMessage
	UpdatedAt       time.Time
}
