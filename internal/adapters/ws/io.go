package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cl *client, handle messageHandler) {
	defer log.Info().Str("module", "ws").Str("sid", string(cl.sid)).Msg("readPump closing")

	pongWait := ctl.PingPeriod * 10 / 9
	cl.conn.conn.SetReadLimit(ctl.ReadLimit)
	_ = cl.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.conn.SetPongHandler(func(string) error {
		return cl.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := cl.conn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Error().Err(err).Str("module", "ws").Str("sid", string(cl.sid)).Msg("readPump read error")
				}
				return
			}
			if !ctl.Limiter.Allow(cl.sid) {
				log.Warn().Str("module", "ws").Str("sid", string(cl.sid)).Msg("rate limit exceeded, message dropped")
				continue
			}
			handle(ctx, cl, data)
		}
	}
}
