package attestsession

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/channel"
	"github.com/opd-ai/attestsession/handshake"
	"github.com/opd-ai/attestsession/sessionerr"
	"github.com/opd-ai/attestsession/wire"
)

// ClientSession drives the initiator side of a session: it opens the
// attestation exchange, then the handshake, then the data channel.
type ClientSession struct {
	cfg   SessionConfig
	phase phase

	attestProvider         *attestation.ClientAttestationProvider
	peerAttestationResults map[string]attestation.AttestationResults

	handshaker *handshake.ClientHandshaker
	encryptor  channel.WireEncryptor

	writeQueue []pendingWrite
	readQueue  [][]byte

	closeErr error
	logger   *logrus.Entry
}

// NewClientSession validates cfg for the Client role and constructs a
// ClientSession ready to begin the attestation phase.
func NewClientSession(cfg SessionConfig) (*ClientSession, error) {
	if err := cfg.validate(attestation.Client); err != nil {
		return nil, err
	}

	provider := attestation.NewClientAttestationProvider(cfg.attestationConfig())
	s := &ClientSession{
		cfg:            cfg,
		phase:          phaseAttesting,
		attestProvider: provider,
		logger: logrus.WithFields(logrus.Fields{
			"package": "attestsession",
			"role":    "client",
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
func (c *ClientSession) IsOpen() bool { return c.phase == phaseOpen }

// GetOutgoingMessage returns the next message this side owes its peer, or
// nil if there is nothing to send right now.
func (c *ClientSession) GetOutgoingMessage() (*wire.SessionRequest, error) {
	switch c.phase {
	case phaseAttesting:
		req, err := c.attestProvider.GetOutgoingMessage()
		if err != nil {
			c.closeWithError(err)
			return nil, err
		}
		if req == nil {
			return nil, nil
		}
		return &wire.SessionRequest{AttestRequest: req}, nil

	case phaseHandshaking:
		msg, err := c.handshaker.GetOutgoingMessage()
		if err != nil {
			c.closeWithError(err)
			return nil, err
		}
		if err := c.maybeOpenFromHandshaker(); err != nil {
			return nil, err
		}
		if msg == nil {
			return nil, nil
		}
		return &wire.SessionRequest{HandshakeRequest: msg}, nil

	case phaseOpen:
		if len(c.writeQueue) == 0 {
			return nil, nil
		}
		pw := c.writeQueue[0]
		c.writeQueue = c.writeQueue[1:]

		ciphertext, nonce, err := c.encryptor.Seal(pw.plaintext, pw.aad)
		if err != nil {
			c.closeWithError(err)
			return nil, err
		}
		return &wire.SessionRequest{EncryptedMessage: &wire.EncryptedMessage{
			Ciphertext:     ciphertext,
			AssociatedData: pw.aad,
			Nonce:          nonce,
		}}, nil

	default:
		return nil, sessionerr.ErrSessionClosed
	}
}

// PutIncomingMessage processes one message received from the server.
func (c *ClientSession) PutIncomingMessage(resp *wire.SessionResponse) error {
	switch c.phase {
	case phaseAttesting:
		return c.putIncomingAttest(resp)
	case phaseHandshaking:
		return c.putIncomingHandshake(resp)
	case phaseOpen:
		return c.putIncomingEncrypted(resp)
	default:
		return sessionerr.ErrSessionClosed
	}
}

func (c *ClientSession) putIncomingAttest(resp *wire.SessionResponse) error {
	if resp == nil || resp.AttestResponse == nil {
		err := sessionerr.NewAttestationFailure("", "expected an attest response", nil)
		c.closeWithError(err)
		return err
	}

	if err := c.attestProvider.PutIncomingMessage(resp.AttestResponse); err != nil {
		c.closeWithError(err)
		return err
	}

	if !c.attestProvider.IsComplete() {
		return nil
	}

	if err := c.completeAttestation(); err != nil {
		c.closeWithError(err)
		return err
	}
	return nil
}

// completeAttestation takes the finished attestation provider's result,
// rejects a failed attestation, and builds the handshaker for the next
// phase. Called either right after construction (Unattested completes
// immediately with no messages exchanged) or once PutIncomingMessage
// reports the provider complete.
func (c *ClientSession) completeAttestation() error {
	combined, err := c.attestProvider.TakeResult()
	if err != nil {
		return err
	}
	if !combined.OK {
		return sessionerr.NewAttestationFailure("", combined.Reason, nil)
	}

	c.peerAttestationResults = combined.Peer

	hs, err := handshake.NewClientHandshaker(c.cfg.handshakeConfig())
	if err != nil {
		return err
	}
	c.handshaker = hs
	c.phase = phaseHandshaking
	return nil
}

func (c *ClientSession) putIncomingHandshake(resp *wire.SessionResponse) error {
	if resp == nil || resp.HandshakeResponse == nil {
		err := sessionerr.NewHandshakeFailure("client_session", "expected a handshake response", nil)
		c.closeWithError(err)
		return err
	}

	if err := c.handshaker.PutIncomingMessage(resp.HandshakeResponse, c.peerAttestationResults); err != nil {
		c.closeWithError(err)
		return err
	}

	// Deliberately does not transition to Open here: GetOutgoingMessage
	// still owes the peer an attempt at the optional followup message
	// (possibly nil, if there is nothing to bind), and that attempt is
	// what actually opens the session. Opening here first would make the
	// phaseHandshaking branch of GetOutgoingMessage unreachable and the
	// followup would never be produced.
	return nil
}
func (c *ClientSession) maybeOpenFromHandshaker() error {
	if c.phase != phaseHandshaking || !c.handshaker.IsComplete() {
		return nil
	}

	result, err := c.handshaker.TakeResult()
	if err != nil {
		return nil
	}

	c.encryptor = newWireEncryptor(c.cfg, result.SessionKeys)
	c.phase = phaseOpen
	c.logger.Debug("session open")
	return nil
}

func (c *ClientSession) putIncomingEncrypted(resp *wire.SessionResponse) error {
	if resp == nil || resp.EncryptedMessage == nil {
		return nil
	}
	plaintext, err := c.encryptor.Open(resp.EncryptedMessage.Ciphertext, resp.EncryptedMessage.AssociatedData, resp.EncryptedMessage.Nonce)
	if err != nil {
		return err
	}
	c.readQueue = append(c.readQueue, plaintext)
	return nil
}

// Write queues plaintext to be sent on the data channel. It fails unless
// the session is Open.
func (c *ClientSession) Write(plaintext []byte) error {
	return c.WriteWithAAD(plaintext, nil)
}

// WriteWithAAD queues plaintext to be sent on the data channel, bound to
// the given additional authenticated data. The AAD travels alongside the
// ciphertext on the wire and must match on the receiving side's Open call.
func (c *ClientSession) WriteWithAAD(plaintext, aad []byte) error {
	if err := c.requireOpen(); err != nil {
		return err
	}
	c.writeQueue = append(c.writeQueue, pendingWrite{plaintext: plaintext, aad: aad})
	return nil
}

// Read returns the next decrypted message, or (nil, nil) if none is
// available yet. It fails unless the session is Open.
func (c *ClientSession) Read() ([]byte, error) {
	if err := c.requireOpen(); err != nil {
		return nil, err
	}
	if len(c.readQueue) == 0 {
		return nil, nil
	}
	msg := c.readQueue[0]
	c.readQueue = c.readQueue[1:]
	return msg, nil
}

func (c *ClientSession) requireOpen() error {
	switch c.phase {
	case phaseOpen:
		return nil
	case phaseClosed:
		return sessionerr.ErrSessionClosed
	default:
		return sessionerr.ErrWrongState
	}
}

func (c *ClientSession) closeWithError(err error) {
	c.phase = phaseClosed
	c.closeErr = err
	c.logger.WithError(err).Warn("session closed due to error")
}

// Err returns the error that closed the session, if any.
func (c *ClientSession) Err() error { return c.closeErr }
