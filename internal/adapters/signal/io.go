package signal

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ident auth.Identity, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("user", string(ident.UserID)).Msg("readPump closing")
		ctl.Orch.Disconnect(ident.UserID, ident.DisplayName, c)
		c.Close()
	}()

	pongWait := ctl.Cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("user", string(ident.UserID)).Msg("readPump read error")
			}
			return
		}
		ctl.handleFrame(ident, c, data)
	}
}

func (ctl *Controller) handleFrame(ident auth.Identity, c *wsConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.TypeJoinRoom:
		ctl.handleJoin(ident, c, data)
	case protocol.TypeLeaveRoom:
		ctl.handleLeave(ident, c, data)
	case protocol.TypeSendMessage:
		ctl.handleSendMessage(ident, c, data)
	case protocol.TypeDeleteMessage:
		ctl.handleDeleteMessage(ident, c, data)
	case protocol.TypeInitiateCall:
		ctl.handleInitiateCall(ident, c, data)
	case protocol.TypeAcceptCall:
		ctl.handleAcceptCall(ident, data)
	case protocol.TypeRejectCall:
		ctl.handleRejectCall(ident, data)
	case protocol.TypeEndCall:
		ctl.handleEndCall(ident, data)
	case protocol.TypeOffer:
		ctl.handleOffer(ident, data)
	case protocol.TypeAnswer:
		ctl.handleAnswer(ident, data)
	case protocol.TypeCandidate:
		ctl.handleCandidate(ident, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, protocol.Error{Type: protocol.TypeError, Error: msg})
}
