package attestsession

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/channel"
	"github.com/opd-ai/attestsession/handshake"
	"github.com/opd-ai/attestsession/sessionerr"
	"github.com/opd-ai/attestsession/wire"
)

// ServerSession drives the responder side of a session: it answers the
// attestation exchange, then the handshake, then the data channel.
type ServerSession struct {
	cfg   SessionConfig
	phase phase

	attestProvider         *attestation.ServerAttestationProvider
	peerAttestationResults map[string]attestation.AttestationResults

	handshaker *handshake.ServerHandshaker
	encryptor  channel.WireEncryptor

	writeQueue []pendingWrite
	readQueue  [][]byte

	closeErr error
	logger   *logrus.Entry
}

// NewServerSession validates cfg for the Server role and constructs a
// ServerSession ready to begin the attestation phase.
func NewServerSession(cfg SessionConfig) (*ServerSession, error) {
	if err := cfg.validate(attestation.Server); err != nil {
		return nil, err
	}

	provider := attestation.NewServerAttestationProvider(cfg.attestationConfig())
	s := &ServerSession{
		cfg:            cfg,
		phase:          phaseAttesting,
		attestProvider: provider,
		logger: logrus.WithFields(logrus.Fields{
			"package": "attestsession",
			"role":    "server",
		}),
	}

	if provider.IsComplete() {
		if err := s.completeAttestation(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// IsOpen reports whether the data channel is ready for Write/Read.
func (s *ServerSession) IsOpen() bool { return s.phase == phaseOpen }

// GetOutgoingMessage returns the next message this side owes its peer, or
// nil if there is nothing to send right now.
func (s *ServerSession) GetOutgoingMessage() (*wire.SessionResponse, error) {
	switch s.phase {
	case phaseAttesting:
		resp, err := s.attestProvider.GetOutgoingMessage()
		if err != nil {
			s.closeWithError(err)
			return nil, err
		}
		if resp == nil {
			return nil, nil
		}

		if s.attestProvider.IsComplete() {
			if err := s.completeAttestation(); err != nil {
				s.closeWithError(err)
				return nil, err
			}
		}
		return &wire.SessionResponse{AttestResponse: resp}, nil

	case phaseHandshaking:
		if !s.handshaker.HasProcessedOpening() || s.handshaker.IsComplete() {
			return nil, nil
		}
		msg, err := s.handshaker.GetOutgoingMessage()
		if err != nil {
			s.closeWithError(err)
			return nil, err
		}
		return &wire.SessionResponse{HandshakeResponse: msg}, nil

	case phaseOpen:
		if len(s.writeQueue) == 0 {
			return nil, nil
		}
		pw := s.writeQueue[0]
		s.writeQueue = s.writeQueue[1:]

		ciphertext, nonce, err := s.encryptor.Seal(pw.plaintext, pw.aad)
		if err != nil {
			s.closeWithError(err)
			return nil, err
		}
		return &wire.SessionResponse{EncryptedMessage: &wire.EncryptedMessage{
			Ciphertext:     ciphertext,
			AssociatedData: pw.aad,
			Nonce:          nonce,
		}}, nil

	default:
		return nil, sessionerr.ErrSessionClosed
	}
}

// PutIncomingMessage processes one message received from the client.
func (s *ServerSession) PutIncomingMessage(req *wire.SessionRequest) error {
	switch s.phase {
	case phaseAttesting:
		return s.putIncomingAttest(req)
	case phaseHandshaking:
		return s.putIncomingHandshake(req)
	case phaseOpen:
		return s.putIncomingEncrypted(req)
	default:
		return sessionerr.ErrSessionClosed
	}
}

func (s *ServerSession) putIncomingAttest(req *wire.SessionRequest) error {
	if req == nil || req.AttestRequest == nil {
		err := sessionerr.NewAttestationFailure("", "expected an attest request", nil)
		s.closeWithError(err)
		return err
	}
	if err := s.attestProvider.PutIncomingMessage(req.AttestRequest); err != nil {
		s.closeWithError(err)
		return err
	}
	return nil
}

// completeAttestation takes the finished attestation provider's result,
// rejects a failed attestation, and builds the handshaker for the next
// phase. Called either right after construction (Unattested completes
// immediately with no messages exchanged) or once GetOutgoingMessage
// reports the provider complete, since the server's own completion runs
// inside building its AttestResponse.
func (s *ServerSession) completeAttestation() error {
	combined, err := s.attestProvider.TakeResult()
	if err != nil {
		return err
	}
	if !combined.OK {
		return sessionerr.NewAttestationFailure("", combined.Reason, nil)
	}

	s.peerAttestationResults = combined.Peer

	hs, err := handshake.NewServerHandshaker(s.cfg.handshakeConfig())
	if err != nil {
		return err
	}
	s.handshaker = hs
	s.phase = phaseHandshaking
	return nil
}

func (s *ServerSession) putIncomingHandshake(req *wire.SessionRequest) error {
	switch {
	case req == nil:
		err := sessionerr.NewHandshakeFailure("server_session", "expected a handshake message", nil)
		s.closeWithError(err)
		return err

	case req.HandshakeRequest != nil && req.HandshakeRequest.HandshakeType != nil && !s.handshaker.HasProcessedOpening():
		if err := s.handshaker.PutIncomingMessage(req.HandshakeRequest); err != nil {
			s.closeWithError(err)
			return err
		}
		return nil

	case req.HandshakeRequest != nil:
		// The client's optional followup, carrying only session bindings.
		if err := s.handshaker.PutIncomingFollowup(req.HandshakeRequest, s.peerAttestationResults); err != nil {
			s.closeWithError(err)
			return err
		}
		return s.maybeOpenFromHandshaker()

	case req.EncryptedMessage != nil:
		// The client sent no followup; verify bindings against an empty
		// set before trusting any data-channel traffic.
		if err := s.finalizeFollowupIfNeeded(); err != nil {
			return err
		}
		if err := s.maybeOpenFromHandshaker(); err != nil {
			return err
		}
		return s.putIncomingEncrypted(req)

	default:
		err := sessionerr.NewHandshakeFailure("server_session", "unexpected empty session request", nil)
		s.closeWithError(err)
		return err
	}
}

func (s *ServerSession) finalizeFollowupIfNeeded() error {
	if !s.handshaker.IsComplete() {
		return nil
	}
	if err := s.handshaker.PutIncomingFollowup(nil, s.peerAttestationResults); err != nil {
		s.closeWithError(err)
		return err
	}
	return nil
}

// maybeOpenFromHandshaker transitions the session to Open once the
// handshaker has a completed result available.
func (s *ServerSession) maybeOpenFromHandshaker() error {
	if s.phase != phaseHandshaking || !s.handshaker.IsComplete() {
		return nil
	}

	result, err := s.handshaker.TakeResult()
	if err != nil {
		return nil
	}

	s.encryptor = newWireEncryptor(s.cfg, result.SessionKeys)
	s.phase = phaseOpen
	s.logger.Debug("session open")
	return nil
}

func (s *ServerSession) putIncomingEncrypted(req *wire.SessionRequest) error {
	if req == nil || req.EncryptedMessage == nil {
		return nil
	}
	plaintext, err := s.encryptor.Open(req.EncryptedMessage.Ciphertext, req.EncryptedMessage.AssociatedData, req.EncryptedMessage.Nonce)
	if err != nil {
		return err
	}
	s.readQueue = append(s.readQueue, plaintext)
	return nil
}

// Write queues plaintext to be sent on the data channel. It fails unless
// the session is Open.
func (s *ServerSession) Write(plaintext []byte) error {
	return s.WriteWithAAD(plaintext, nil)
}

// WriteWithAAD queues plaintext to be sent on the data channel, bound to
// the given additional authenticated data. The AAD travels alongside the
// ciphertext on the wire and must match on the receiving side's Open call.
func (s *ServerSession) WriteWithAAD(plaintext, aad []byte) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.writeQueue = append(s.writeQueue, pendingWrite{plaintext: plaintext, aad: aad})
	return nil
}

// Read returns the next decrypted message, or (nil, nil) if none is
// available yet. It fails unless the session is Open.
func (s *ServerSession) Read() ([]byte, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	if len(s.readQueue) == 0 {
		return nil, nil
	}
	msg := s.readQueue[0]
	s.readQueue = s.readQueue[1:]
	return msg, nil
}

func (s *ServerSession) requireOpen() error {
	switch s.phase {
	case phaseOpen:
		return nil
	case phaseClosed:
		return sessionerr.ErrSessionClosed
	default:
		return sessionerr.ErrWrongState
	}
}

func (s *ServerSession) closeWithError(err error) {
	s.phase = phaseClosed
	s.closeErr = err
	s.logger.WithError(err).Warn("session closed due to error")
}

// Err returns the error that closed the session, if any.
func (s *ServerSession) Err() error { return s.closeErr }
