package handshake

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/binding"
	"github.com/opd-ai/attestsession/crypto"
	"github.com/opd-ai/attestsession/noise"
	"github.com/opd-ai/attestsession/sessionerr"
	"github.com/opd-ai/attestsession/wire"
)

// Type selects which Noise pattern a handshake runs.
type Type int

const (
	TypeNN Type = iota
	TypeNK
	TypeKK
)

func (t Type) noisePattern() noise.Pattern {
	switch t {
	case TypeNK:
		return noise.PatternNK
	case TypeKK:
		return noise.PatternKK
	default:
		return noise.PatternNN
	}
}

// Config configures one side of a handshake, including the session
// bindings this side will offer once the handshake completes.
type Config struct {
	Type                 Type
	SelfStaticPrivateKey *crypto.Keypair
	PeerStaticPublicKey  []byte
	SessionBinders       map[string]binding.Binder
}

// SessionKeys are the two directional AEAD ciphers a completed handshake
// produces, already oriented for this side: Send encrypts outbound
// traffic, Recv decrypts inbound traffic.
type SessionKeys struct {
	Send noise.AEAD
	Recv noise.AEAD
}

// Result is what a completed handshake produces for its caller.
type Result struct {
	SessionKeys   SessionKeys
	HandshakeHash []byte
}

type phase int

const (
	phaseNotStarted phase = iota
	phaseSent
	phaseCompleted
)

// ClientHandshaker drives the initiator side of a handshake. The Noise
// exchange itself completes, and the peer's bindings are verified,
// entirely within PutIncomingMessage: the client learns the final
// handshake hash only once it processes the server's response, so its
// own bindings can only go out afterward, as an optional third
// "followup" message GetOutgoingMessage produces at most once.
type ClientHandshaker struct {
	cfg          Config
	hs           *noise.Handshake
	phase        phase
	followupSent bool
	result       *Result
	logger       *logrus.Entry
}

// NewClientHandshaker constructs a ClientHandshaker. For NoiseNK,
// cfg.PeerStaticPublicKey is required; for NoiseKK, both
// cfg.SelfStaticPrivateKey and cfg.PeerStaticPublicKey are required.
func NewClientHandshaker(cfg Config) (*ClientHandshaker, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "NewClientHandshaker",
		"package":  "handshake",
	})

	hs, err := noise.New(noise.Config{
		Pattern:          cfg.Type.noisePattern(),
		Role:             noise.Initiator,
		StaticKeypair:    cfg.SelfStaticPrivateKey,
		PeerStaticPublic: cfg.PeerStaticPublicKey,
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "noise_init_failed",
		}).Error("failed to construct client handshake state")
		return nil, sessionerr.NewHandshakeFailure("client_handshaker_init", "failed to initialize noise handshake state", err)
	}

	return &ClientHandshaker{cfg: cfg, hs: hs, logger: logger}, nil
}

// GetOutgoingMessage returns the next message this side owes its peer, or
// nil if there is nothing left to send. The client sends exactly one
// message to start the handshake, then at most one followup carrying its
// own session bindings once it has learned the final handshake hash.
func (c *ClientHandshaker) GetOutgoingMessage() (*wire.HandshakeRequest, error) {
	switch {
	case c.phase == phaseNotStarted:
		msg, err := c.hs.WriteMessage(nil)
		if err != nil {
			return nil, sessionerr.NewHandshakeFailure("client_write_message_1", "failed to build first handshake message", err)
		}
		c.phase = phaseSent
		return &wire.HandshakeRequest{
			HandshakeType: &wire.NoiseHandshakeMessage{Message: msg},
		}, nil

	case c.phase == phaseCompleted && !c.followupSent:
		c.followupSent = true
		bindings, err := binding.SignAll(c.cfg.SessionBinders, c.result.HandshakeHash)
		if err != nil {
			return nil, sessionerr.NewHandshakeFailure("client_sign_bindings", "failed to sign session bindings", err)
		}
		if len(bindings) == 0 {
			return nil, nil
		}
		return &wire.HandshakeRequest{AttestationBindings: bindings}, nil

	default:
		return nil, nil
	}
}

// PutIncomingMessage processes the server's response: it completes the
// Noise handshake and verifies any session bindings the response carries
// against peerResults (the attestation results this side collected about
// the server during the attestation phase).
func (c *ClientHandshaker) PutIncomingMessage(resp *wire.HandshakeResponse, peerResults map[string]attestation.AttestationResults) error {
	if c.phase != phaseSent {
		return sessionerr.NewHandshakeFailure("client_put_incoming_message", "unexpected handshake response", nil)
	}
	if resp == nil || resp.HandshakeType == nil {
		return sessionerr.NewHandshakeFailure("client_put_incoming_message", "missing noise handshake message", nil)
	}

	if _, err := c.hs.ReadMessage(resp.HandshakeType.Message); err != nil {
		c.logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "read_message_failed",
		}).Error("client failed to process server handshake message")
		return sessionerr.NewHandshakeFailure("client_read_message_2", "failed to process server handshake message", err)
	}

	keys, err := c.hs.Split()
	if err != nil {
		return sessionerr.NewHandshakeFailure("client_split", "handshake did not complete", err)
	}

	if err := binding.VerifyAll(resp.AttestationBindings, keys.HandshakeHash, peerResults); err != nil {
		return sessionerr.NewBindingFailure("", "failed to verify server session bindings", err)
	}

	c.result = &Result{
		SessionKeys:   SessionKeys{Send: keys.Send, Recv: keys.Recv},
		HandshakeHash: keys.HandshakeHash,
	}
	c.phase = phaseCompleted
	c.logger.Debug("client handshake complete")
	return nil
}

// IsComplete reports whether the Noise exchange has finished (TakeResult
// will succeed), regardless of whether the optional followup has gone
// out yet.
func (c *ClientHandshaker) IsComplete() bool { return c.phase == phaseCompleted }

// TakeResult returns the completed handshake result.
func (c *ClientHandshaker) TakeResult() (*Result, error) {
	if c.phase != phaseCompleted {
		return nil, sessionerr.ErrWrongState
	}
	return c.result, nil
}

// ServerHandshaker drives the responder side of a handshake. Unlike the
// client, the server knows the final handshake hash before it finishes
// building its single response message, so TakeResult is available
// immediately after GetOutgoingMessage; verifying the client's optional
// followup bindings is a separate step that does not gate it, since a
// followup may never arrive at all.
type ServerHandshaker struct {
	cfg               Config
	hs                *noise.Handshake
	phase             phase
	followupProcessed bool
	result            *Result
	logger            *logrus.Entry
}

// NewServerHandshaker constructs a ServerHandshaker. For NoiseNK,
// cfg.SelfStaticPrivateKey is required; for NoiseKK, both
// cfg.SelfStaticPrivateKey and cfg.PeerStaticPublicKey are required.
func NewServerHandshaker(cfg Config) (*ServerHandshaker, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "NewServerHandshaker",
		"package":  "handshake",
	})

	hs, err := noise.New(noise.Config{
		Pattern:          cfg.Type.noisePattern(),
		Role:             noise.Responder,
		StaticKeypair:    cfg.SelfStaticPrivateKey,
		PeerStaticPublic: cfg.PeerStaticPublicKey,
	})
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "noise_init_failed",
		}).Error("failed to construct server handshake state")
		return nil, sessionerr.NewHandshakeFailure("server_handshaker_init", "failed to initialize noise handshake state", err)
	}

	return &ServerHandshaker{cfg: cfg, hs: hs, logger: logger}, nil
}

// PutIncomingMessage processes the client's first handshake message.
func (s *ServerHandshaker) PutIncomingMessage(req *wire.HandshakeRequest) error {
	if s.phase != phaseNotStarted {
		return sessionerr.NewHandshakeFailure("server_put_incoming_message", "unexpected handshake request", nil)
	}
	if req == nil || req.HandshakeType == nil {
		return sessionerr.NewHandshakeFailure("server_put_incoming_message", "missing noise handshake message", nil)
	}

	if _, err := s.hs.ReadMessage(req.HandshakeType.Message); err != nil {
		s.logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "read_message_failed",
		}).Error("server failed to process client handshake message")
		return sessionerr.NewHandshakeFailure("server_read_message_1", "failed to process client handshake message", err)
	}

	s.phase = phaseSent
	return nil
}

// GetOutgoingMessage produces the server's response, which always
// completes the Noise handshake for the server and carries this side's
// own session bindings.
func (s *ServerHandshaker) GetOutgoingMessage() (*wire.HandshakeResponse, error) {
	if s.phase != phaseSent {
		return nil, sessionerr.NewHandshakeFailure("server_get_outgoing_message", "handshake request not yet processed", nil)
	}

	msg, err := s.hs.WriteMessage(nil)
	if err != nil {
		return nil, sessionerr.NewHandshakeFailure("server_write_message_2", "failed to build response handshake message", err)
	}

	keys, err := s.hs.Split()
	if err != nil {
		return nil, sessionerr.NewHandshakeFailure("server_split", "handshake did not complete", err)
	}

	bindings, err := binding.SignAll(s.cfg.SessionBinders, keys.HandshakeHash)
	if err != nil {
		return nil, sessionerr.NewHandshakeFailure("server_sign_bindings", "failed to sign session bindings", err)
	}

	s.result = &Result{
		SessionKeys:   SessionKeys{Send: keys.Send, Recv: keys.Recv},
		HandshakeHash: keys.HandshakeHash,
	}
	s.phase = phaseCompleted
	s.logger.Debug("server handshake complete")

	return &wire.HandshakeResponse{
		HandshakeType:       &wire.NoiseHandshakeMessage{Message: msg},
		AttestationBindings: bindings,
	}, nil
}

// PutIncomingFollowup verifies the client's optional followup bindings
// against peerResults (the attestation results the server collected
// about the client). followup may be nil if the client had nothing to
// send; a nil followup with empty peerResults is a trivial pass. Calling
// this more than once is a no-op after the first call.
func (s *ServerHandshaker) PutIncomingFollowup(followup *wire.HandshakeRequest, peerResults map[string]attestation.AttestationResults) error {
	if s.phase != phaseCompleted {
		return sessionerr.NewHandshakeFailure("server_put_incoming_followup", "handshake response not yet sent", nil)
	}
	if s.followupProcessed {
		return nil
	}
	s.followupProcessed = true

	bindings := map[string]binding.SessionBinding{}
	if followup != nil {
		bindings = followup.AttestationBindings
	}

	if err := binding.VerifyAll(bindings, s.result.HandshakeHash, peerResults); err != nil {
		return sessionerr.NewBindingFailure("", "failed to verify client session bindings", err)
	}
	return nil
}

// IsComplete reports whether the Noise exchange has finished (TakeResult
// will succeed), regardless of whether the client's followup has been
// processed yet.
func (s *ServerHandshaker) IsComplete() bool { return s.phase == phaseCompleted }

// HasProcessedOpening reports whether the client's first handshake
// message has already been consumed, letting a caller distinguish that
// message from a later followup carrying only session bindings.
func (s *ServerHandshaker) HasProcessedOpening() bool { return s.phase != phaseNotStarted }

// TakeResult returns the completed handshake result.
func (s *ServerHandshaker) TakeResult() (*Result, error) {
	if s.phase != phaseCompleted {
		return nil, sessionerr.ErrWrongState
	}
	return s.result, nil
}
