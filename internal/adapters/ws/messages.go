package ws

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"interviewhub/backend/internal/core"
	"interviewhub/backend/internal/domain"
)

// Inbound payloads. Every message carries a type tag; the payload shape is
// validated here, at the gateway boundary, before anything is dispatched.

type envelope struct {
	Type string `json:"type"`
}

type videoJoinPayload struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type collabJoinPayload struct {
	Type         string `json:"type"`
	AssessmentID string `json:"assessmentId"`
	CandidateID  string `json:"candidateId"`
	QuestionID   string `json:"questionId"`
	UserID       string `json:"userId"`
}

type sdpPayload struct {
	Type string                    `json:"type"`
	To   core.SessionID            `json:"to"`
	SDP  webrtc.SessionDescription `json:"sdp"`
}

type candidatePayload struct {
	Type      string                  `json:"type"`
	To        core.SessionID          `json:"to"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type codeChangePayload struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type whiteboardChangePayload struct {
	Type       string            `json:"type"`
	Whiteboard []json.RawMessage `json:"whiteboard"`
}

// Outbound events.

type existingUsersEvent struct {
	Type  string           `json:"type"`
	Users []core.MemberDTO `json:"users"`
}

type hostInfoEvent struct {
	Type   string         `json:"type"`
	HostID core.SessionID `json:"hostId"`
}

type presenceEvent struct {
	Type   string         `json:"type"`
	ID     core.SessionID `json:"id"`
	UserID domain.UserID  `json:"userId"`
}

type sdpEvent struct {
	Type string                    `json:"type"`
	From core.SessionID            `json:"from"`
	SDP  webrtc.SessionDescription `json:"sdp"`
}

type candidateEvent struct {
	Type      string                  `json:"type"`
	From      core.SessionID          `json:"from"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type initialStateEvent struct {
	Type       string            `json:"type"`
	Code       string            `json:"code"`
	Language   string            `json:"language,omitempty"`
	Whiteboard []json.RawMessage `json:"whiteboard"`
}

type codeUpdateEvent struct {
	Type     string `json:"type"`
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type whiteboardUpdateEvent struct {
	Type       string            `json:"type"`
	Whiteboard []json.RawMessage `json:"whiteboard"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
