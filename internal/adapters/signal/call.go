package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/domain"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

func (ctl *Controller) handleInitiateCall(ident auth.Identity, c *wsConn, data []byte) {
	var p protocol.InitiateCall
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad initiate payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if !p.Kind.Valid() {
		p.Kind = domain.CallAudio
	}
	name := ident.DisplayName
	if p.DisplayName != "" {
		name = p.DisplayName
	}
	log.Info().Str("module", "signal").Str("user", string(ident.UserID)).
		Str("room", string(p.Room)).Str("kind", string(p.Kind)).Msg("initiate call")
	ctl.Orch.InitiateCall(ident.UserID, name, p.Room, p.Kind)
}

func (ctl *Controller) handleAcceptCall(ident auth.Identity, data []byte) {
	var p protocol.CallControl
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad accept payload")
		return
	}
	// Invalid transitions are swallowed here: a duplicate accept for an
	// already-terminated call is a no-op, never a client-visible error.
	if err := ctl.Orch.Calls.Accept(ident.UserID, p.Target); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("user", string(ident.UserID)).Msg("accept dropped")
	}
}

func (ctl *Controller) handleRejectCall(ident auth.Identity, data []byte) {
	var p protocol.CallControl
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad reject payload")
		return
	}
	if err := ctl.Orch.Calls.Reject(ident.UserID, p.Target); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("user", string(ident.UserID)).Msg("reject dropped")
	}
}

func (ctl *Controller) handleEndCall(ident auth.Identity, data []byte) {
	var p protocol.EndCall
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad end payload")
		return
	}
	switch {
	case p.Target != "":
		ctl.Orch.Calls.End(ident.UserID, p.Target)
	case p.Room != "":
		ctl.Orch.Calls.EndRoom(ident.UserID, p.Room)
	default:
		log.Warn().Str("module", "signal").Str("user", string(ident.UserID)).Msg("end-call without target or room")
	}
}
