package attestsession

import (
	"github.com/opd-ai/attestsession/channel"
	"github.com/opd-ai/attestsession/handshake"
)

// phase is the session-level state machine position, shared by
// ClientSession and ServerSession: Attesting -> Handshaking -> Open ->
// Closed.
type phase int

const (
	phaseAttesting phase = iota
	phaseHandshaking
	phaseOpen
	phaseClosed
)

// pendingWrite is one Write call queued for the next GetOutgoingMessage.
type pendingWrite struct {
	plaintext []byte
	aad       []byte
}

func newWireEncryptor(cfg SessionConfig, keys handshake.SessionKeys) channel.WireEncryptor {
	if cfg.Encryptor == Unordered {
		return channel.NewUnorderedWireEncryptor(keys.Send, keys.Recv, cfg.WindowSize)
	}
	return channel.NewOrderedWireEncryptor(keys.Send, keys.Recv)
}
