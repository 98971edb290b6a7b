// Package ws is the session gateway: it accepts websocket connections,
// validates inbound messages, and routes them by room key to the signaling
// coordinator or the collaboration engine.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"interviewhub/backend/internal/collab"
	"interviewhub/backend/internal/core"
	"interviewhub/backend/internal/domain"
	"interviewhub/backend/internal/signal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	VideoRooms  *core.Registry
	CollabRooms *core.Registry
	Coord       *signal.Coordinator
	Engine      *collab.Engine
	Limiter     *RateLimiter

	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

func NewController(coord *signal.Coordinator, engine *collab.Engine, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		VideoRooms:  core.NewRegistry(),
		CollabRooms: core.NewRegistry(),
		Coord:       coord,
		Engine:      engine,
		Limiter:     NewRateLimiter(100, time.Second),
		ReadLimit:   readLimit,
		PingPeriod:  pingPeriod,
		SendBuffer:  32,
	}
}

// client is the per-connection state. A connection belongs to at most one
// room; the room kind is fixed by the endpoint it arrived on.
type client struct {
	sid  core.SessionID
	conn *wsConn

	joined      bool
	roomID      string
	collabKey   domain.CollabKey
	participant *domain.Participant
}

func videoKey(roomID string) string         { return "video:" + roomID }
func collabKey(key domain.CollabKey) string { return "collab:" + key.String() }

// HandleVideo serves one signaling connection for a video session room.
func (ctl *Controller) HandleVideo(ctx context.Context, c *gin.Context) {
	ctl.serve(ctx, c, ctl.handleVideoMessage, ctl.teardownVideo)
}

// HandleCollab serves one connection for a code/whiteboard collaboration room.
func (ctl *Controller) HandleCollab(ctx context.Context, c *gin.Context) {
	ctl.serve(ctx, c, ctl.handleCollabMessage, ctl.teardownCollab)
}

type messageHandler func(ctx context.Context, cl *client, data []byte)
type teardownFunc func(cl *client)

func (ctl *Controller) serve(ctx context.Context, c *gin.Context, handle messageHandler, teardown teardownFunc) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "ws").Str("sid", string(sid)).
		Str("ct", c.GetString("client_token")).Msg("new WS connection")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}

	cl := &client{sid: sid, conn: newWSConn(conn, ctl.SendBuffer)}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go ctl.writePump(ctx, cl.conn)
	ctl.readPump(ctx, cl, handle)

	// readPump returned: the transport is gone, graceful or not.
	teardown(cl)
	cl.conn.Close()
	ctl.Limiter.Forget(sid)
}

func (ctl *Controller) handleVideoMessage(ctx context.Context, cl *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		return
	}
	switch env.Type {
	case "join-room":
		ctl.handleVideoJoin(cl, data)
	case "offer":
		ctl.handleOffer(cl, data)
	case "answer":
		ctl.handleAnswer(cl, data)
	case "ice-candidate":
		ctl.handleCandidate(cl, data)
	case "ping":
		ctl.sendJSON(cl.conn, envelope{Type: "pong"})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) handleCollabMessage(ctx context.Context, cl *client, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		return
	}
	switch env.Type {
	case "join-room":
		ctl.handleCollabJoin(ctx, cl, data)
	case "code-change":
		ctl.handleCodeChange(cl, data)
	case "whiteboard-change":
		ctl.handleWhiteboardChange(cl, data)
	case "ping":
		ctl.sendJSON(cl.conn, envelope{Type: "pong"})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown collab message")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func marshalFrame(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("frame marshal")
		return nil, false
	}
	return b, true
}
