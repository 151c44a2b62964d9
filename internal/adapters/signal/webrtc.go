package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/protocol"
)

// Offers, answers and candidates are opaque to the server: they are
// re-addressed with the sender identity and forwarded to the target's
// current connection, or dropped if the target is gone.

func (ctl *Controller) handleOffer(ident auth.Identity, data []byte) {
	var p protocol.Descriptor
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		return
	}
	ctl.relayDescriptor(ident, p)
}

func (ctl *Controller) handleAnswer(ident auth.Identity, data []byte) {
	var p protocol.Descriptor
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad answer payload")
		return
	}
	ctl.relayDescriptor(ident, p)
}

func (ctl *Controller) relayDescriptor(ident auth.Identity, p protocol.Descriptor) {
	if p.Target == "" {
		log.Warn().Str("module", "signal").Str("type", p.Type).Msg("descriptor without target")
		return
	}
	target := p.Target
	p.From = ident.UserID
	p.Target = ""
	ctl.Orch.Relay.Send(target, p)
}

func (ctl *Controller) handleCandidate(ident auth.Identity, data []byte) {
	var p protocol.Candidate
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		return
	}
	if p.Target == "" {
		return
	}
	target := p.Target
	p.From = ident.UserID
	p.Target = ""
	ctl.Orch.Relay.Send(target, p)
}
