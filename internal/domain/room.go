// Package domain contains entity without logic, just meta-data
package domain

import "fmt"

type RoomID string

// VideoRoom is the persisted record behind a video session room,
// created over REST before anyone opens a signaling connection.
type VideoRoom struct {
	ID           RoomID   `json:"roomId"`
	CreatedBy    UserID   `json:"createdBy"`
	Participants []UserID `json:"participants"`
}

// CollabKey scopes one collaboration session: a candidate working on a
// question inside an assessment. Its String form is the room key and the
// key of the persisted Attempt.
type CollabKey struct {
	AssessmentID string
	CandidateID  string
	QuestionID   string
}

func (k CollabKey) String() string {
	return fmt.Sprintf("%s_%s_%s", k.AssessmentID, k.CandidateID, k.QuestionID)
}

func (k CollabKey) Valid() bool {
	return k.AssessmentID != "" && k.CandidateID != "" && k.QuestionID != ""
}
