package ws

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/core"
	"interviewhub/backend/internal/domain"
)

func (ctl *Controller) handleCollabJoin(ctx context.Context, cl *client, data []byte) {
	var p collabJoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad collab join payload")
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "bad_payload"})
		return
	}
	if cl.joined {
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "already in room"})
		return
	}
	key := domain.CollabKey{
		AssessmentID: p.AssessmentID,
		CandidateID:  p.CandidateID,
		QuestionID:   p.QuestionID,
	}
	if !key.Valid() {
		log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).Msg("missing room data")
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "missing room data"})
		return
	}
	participant, err := domain.NewParticipant(domain.UserID(p.UserID))
	if err != nil {
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "invalid user id"})
		return
	}

	room, _ := ctl.CollabRooms.Join(collabKey(key), cl.sid, core.NewMemberSession(participant, cl.conn))
	cl.joined = true
	cl.collabKey = key
	cl.participant = participant
	log.Info().Str("module", "ws").Str("sid", string(cl.sid)).Str("room", key.String()).Msg("join collab room")

	doc, err := ctl.Engine.Join(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Str("room", key.String()).Msg("document join failed")
		return
	}
	ctl.sendJSON(cl.conn, initialStateEvent{
		Type:       "load-initial-state",
		Code:       doc.Code,
		Language:   doc.Language,
		Whiteboard: doc.Whiteboard,
	})

	if frame, ok := marshalFrame(presenceEvent{Type: "user-connected", ID: cl.sid, UserID: participant.ID}); ok {
		room.Broadcast(cl.sid, frame)
	}
}

// handleCodeChange applies the edit to the authoritative document, echoes it
// to everyone else in the room, and leaves persistence to the engine's
// background worker.
func (ctl *Controller) handleCodeChange(cl *client, data []byte) {
	var p codeChangePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad code-change payload")
		return
	}
	if !cl.joined {
		log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).Msg("code-change before join, dropped")
		return
	}

	ctl.Engine.ApplyCode(cl.collabKey, cl.participant.ID, p.Code, p.Language, json.RawMessage(data))

	room, ok := ctl.CollabRooms.Get(collabKey(cl.collabKey))
	if !ok {
		return
	}
	if frame, fok := marshalFrame(codeUpdateEvent{Type: "code-update", Code: p.Code, Language: p.Language}); fok {
		room.Broadcast(cl.sid, frame)
	}
}

func (ctl *Controller) handleWhiteboardChange(cl *client, data []byte) {
	var p whiteboardChangePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad whiteboard-change payload")
		return
	}
	if !cl.joined {
		log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).Msg("whiteboard-change before join, dropped")
		return
	}

	ctl.Engine.ApplyWhiteboard(cl.collabKey, cl.participant.ID, p.Whiteboard, json.RawMessage(data))

	room, ok := ctl.CollabRooms.Get(collabKey(cl.collabKey))
	if !ok {
		return
	}
	if frame, fok := marshalFrame(whiteboardUpdateEvent{Type: "whiteboard-update", Whiteboard: p.Whiteboard}); fok {
		room.Broadcast(cl.sid, frame)
	}
}

func (ctl *Controller) teardownCollab(cl *client) {
	if !cl.joined {
		return
	}
	key := collabKey(cl.collabKey)
	room, ok := ctl.CollabRooms.Get(key)
	remaining := ctl.CollabRooms.Leave(key, cl.sid)

	if ok {
		if frame, fok := marshalFrame(presenceEvent{Type: "user-disconnected", ID: cl.sid, UserID: cl.participant.ID}); fok {
			room.Broadcast(cl.sid, frame)
		}
	}
	if remaining == 0 {
		ctl.Engine.Evict(cl.collabKey)
	}
}
