package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

func (ctl *Controller) handleJoin(ident auth.Identity, c *wsConn, data []byte) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" {
		ctl.sendError(c, "missing room")
		return
	}
	name := ident.DisplayName
	if p.DisplayName != "" {
		name = p.DisplayName
	}
	log.Info().Str("module", "signal").Str("user", string(ident.UserID)).Str("room", string(p.Room)).Msg("join")
	ctl.Orch.Join(ident.UserID, name, p.Room)
}

func (ctl *Controller) handleLeave(ident auth.Identity, c *wsConn, data []byte) {
	var p protocol.LeaveRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	name := ident.DisplayName
	if p.DisplayName != "" {
		name = p.DisplayName
	}
	log.Info().Str("module", "signal").Str("user", string(ident.UserID)).Str("room", string(p.Room)).Msg("leave")
	ctl.Orch.Leave(ident.UserID, name, p.Room)
}
