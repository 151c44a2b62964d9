package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

func (ctl *Controller) handleSendMessage(ident auth.Identity, c *wsConn, data []byte) {
	if !ctl.Limiter.Allow(ident.UserID) {
		ctl.sendError(c, "rate_limited")
		return
	}
	var p protocol.SendMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" || p.Content == "" {
		ctl.sendError(c, "missing room or content")
		return
	}
	name := ident.DisplayName
	if p.DisplayName != "" {
		name = p.DisplayName
	}
	if _, err := ctl.Orch.SendMessage(context.Background(), ident.UserID, name, p.Room, p.Content); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send message")
		ctl.sendError(c, "message_failed")
	}
}

func (ctl *Controller) handleDeleteMessage(ident auth.Identity, c *wsConn, data []byte) {
	var p protocol.DeleteMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad delete payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if err := ctl.Orch.DeleteMessage(context.Background(), ident.UserID, p.Room, p.MessageID, p.DeleteForEveryone); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("delete message")
	}
}
