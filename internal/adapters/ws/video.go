package ws

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/core"
	"interviewhub/backend/internal/domain"
)

func (ctl *Controller) handleVideoJoin(cl *client, data []byte) {
	var p videoJoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad join payload")
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "bad_payload"})
		return
	}
	if cl.joined {
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "already in room"})
		return
	}
	if p.RoomID == "" {
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "missing room id"})
		return
	}
	participant, err := domain.NewParticipant(domain.UserID(p.UserID))
	if err != nil {
		ctl.sendJSON(cl.conn, errorEvent{Type: "error", Error: "invalid user id"})
		return
	}

	room, _ := ctl.VideoRooms.Join(videoKey(p.RoomID), cl.sid, core.NewMemberSession(participant, cl.conn))
	host, elected := ctl.Coord.Join(p.RoomID, cl.sid)
	if elected {
		participant.Role = domain.RoleHost
	}
	cl.joined = true
	cl.roomID = p.RoomID
	cl.participant = participant
	log.Info().Str("module", "ws").Str("sid", string(cl.sid)).
		Str("room", p.RoomID).Bool("host", elected).Msg("join video room")

	ctl.sendJSON(cl.conn, existingUsersEvent{Type: "existing-users", Users: room.Others(cl.sid)})
	ctl.sendJSON(cl.conn, hostInfoEvent{Type: "host-info", HostID: host})

	if frame, ok := marshalFrame(presenceEvent{Type: "user-connected", ID: cl.sid, UserID: participant.ID}); ok {
		room.Broadcast(cl.sid, frame)
	}
}

func (ctl *Controller) handleOffer(cl *client, data []byte) {
	p, ok := ctl.decodeSDP(cl, data, webrtc.SDPTypeOffer)
	if !ok {
		return
	}
	accept, flush := ctl.Coord.Offer(cl.roomID, cl.sid, p.To)
	if !accept {
		return
	}
	ctl.relaySDP(cl, "offer", p)
	ctl.relayCandidates(cl, p.To, flush)
}

func (ctl *Controller) handleAnswer(cl *client, data []byte) {
	p, ok := ctl.decodeSDP(cl, data, webrtc.SDPTypeAnswer)
	if !ok {
		return
	}
	accept, flush := ctl.Coord.Answer(cl.roomID, cl.sid, p.To)
	if !accept {
		return
	}
	ctl.relaySDP(cl, "answer", p)
	ctl.relayCandidates(cl, p.To, flush)
}

// handleCandidate relays a trickled candidate, or leaves it buffered in the
// coordinator until the receiving side holds the matching description.
func (ctl *Controller) handleCandidate(cl *client, data []byte) {
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad candidate payload")
		return
	}
	if !cl.joined || p.To == "" || p.Candidate.Candidate == "" {
		log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).Msg("candidate dropped")
		return
	}
	if ctl.Coord.Candidate(cl.roomID, cl.sid, p.To, p.Candidate) {
		ctl.relayCandidates(cl, p.To, []webrtc.ICECandidateInit{p.Candidate})
	}
}

func (ctl *Controller) decodeSDP(cl *client, data []byte, want webrtc.SDPType) (*sdpPayload, bool) {
	var p sdpPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad sdp payload")
		return nil, false
	}
	if !cl.joined {
		log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).Msg("sdp before join, dropped")
		return nil, false
	}
	if p.To == "" || p.SDP.SDP == "" || p.SDP.Type != want {
		log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).
			Str("sdp_type", p.SDP.Type.String()).Msg("malformed sdp message, dropped")
		return nil, false
	}
	room, ok := ctl.VideoRooms.Get(videoKey(cl.roomID))
	if !ok {
		return nil, false
	}
	if _, ok := room.Get(p.To); !ok {
		log.Warn().Str("module", "ws").Str("to", string(p.To)).Msg("sdp target not in room, dropped")
		return nil, false
	}
	return &p, true
}

func (ctl *Controller) relaySDP(cl *client, kind string, p *sdpPayload) {
	room, ok := ctl.VideoRooms.Get(videoKey(cl.roomID))
	if !ok {
		return
	}
	frame, ok := marshalFrame(sdpEvent{Type: kind, From: cl.sid, SDP: p.SDP})
	if !ok {
		return
	}
	if err := room.SendTo(p.To, frame); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("to", string(p.To)).Msg("sdp relay failed")
	}
}

func (ctl *Controller) relayCandidates(cl *client, to core.SessionID, cands []webrtc.ICECandidateInit) {
	if len(cands) == 0 {
		return
	}
	room, ok := ctl.VideoRooms.Get(videoKey(cl.roomID))
	if !ok {
		return
	}
	for _, cand := range cands {
		frame, ok := marshalFrame(candidateEvent{Type: "ice-candidate", From: cl.sid, Candidate: cand})
		if !ok {
			continue
		}
		if err := room.SendTo(to, frame); err != nil {
			log.Warn().Err(err).Str("module", "ws").Str("to", string(to)).Msg("candidate relay failed")
		}
	}
}

// teardownVideo releases everything the connection held: room membership,
// peer links, and the host role if it was the host.
func (ctl *Controller) teardownVideo(cl *client) {
	if !cl.joined {
		return
	}
	key := videoKey(cl.roomID)
	room, ok := ctl.VideoRooms.Get(key)

	res := ctl.Coord.Leave(cl.roomID, cl.sid)
	ctl.VideoRooms.Leave(key, cl.sid)

	if !ok {
		return
	}
	if frame, fok := marshalFrame(presenceEvent{Type: "user-disconnected", ID: cl.sid, UserID: cl.participant.ID}); fok {
		room.Broadcast(cl.sid, frame)
	}
	if res.Reelected {
		if frame, fok := marshalFrame(hostInfoEvent{Type: "host-info", HostID: res.NewHost}); fok {
			room.Broadcast(cl.sid, frame)
		}
	}
}
