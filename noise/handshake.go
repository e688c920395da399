package noise

import (
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/crypto"
)

// Pattern identifies one of the three Noise handshake patterns the session
// core supports.
type Pattern int

const (
	PatternNN Pattern = iota
	PatternNK
	PatternKK
)

func (p Pattern) String() string {
	switch p {
	case PatternNN:
		return "NN"
	case PatternNK:
		return "NK"
	case PatternKK:
		return "KK"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// Role is a peer's position in the handshake: the initiator sends the first
// message, the responder sends the second.
type Role int

const (
	Initiator Role = iota
	Responder
)

func (r Role) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

var (
	ErrUnknownPattern       = errors.New("noise: unknown pattern")
	ErrStaticKeyRequired    = errors.New("noise: pattern requires a local static keypair")
	ErrStaticKeyForbidden   = errors.New("noise: pattern forbids a local static keypair")
	ErrPeerStaticRequired   = errors.New("noise: pattern requires the peer's static public key")
	ErrPeerStaticForbidden  = errors.New("noise: pattern forbids the peer's static public key")
	ErrAlreadyComplete      = errors.New("noise: handshake is already complete")
	ErrNotComplete          = errors.New("noise: handshake is not yet complete")
	ErrInvalidPeerStaticLen = errors.New("noise: peer static public key must be 32 bytes")
)

// Config describes one side of a handshake. StaticKeypair and
// PeerStaticPublic are required or forbidden depending on Pattern; see
// validate.
type Config struct {
	Pattern          Pattern
	Role             Role
	StaticKeypair    *crypto.Keypair
	PeerStaticPublic []byte
}

func (c Config) validate() error {
	switch c.Pattern {
	case PatternNN:
		if c.StaticKeypair != nil {
			return ErrStaticKeyForbidden
		}
		if len(c.PeerStaticPublic) != 0 {
			return ErrPeerStaticForbidden
		}
	case PatternNK:
		if c.Role == Responder {
			if c.StaticKeypair == nil {
				return ErrStaticKeyRequired
			}
			if len(c.PeerStaticPublic) != 0 {
				return ErrPeerStaticForbidden
			}
		} else {
			if c.StaticKeypair != nil {
				return ErrStaticKeyForbidden
			}
			if len(c.PeerStaticPublic) != 32 {
				return ErrInvalidPeerStaticLen
			}
		}
	case PatternKK:
		if c.StaticKeypair == nil {
			return ErrStaticKeyRequired
		}
		if len(c.PeerStaticPublic) != 32 {
			return ErrInvalidPeerStaticLen
		}
	default:
		return ErrUnknownPattern
	}
	return nil
}

func noisePattern(p Pattern) (noise.HandshakePattern, error) {
	switch p {
	case PatternNN:
		return noise.HandshakeNN, nil
	case PatternNK:
		return noise.HandshakeNK, nil
	case PatternKK:
		return noise.HandshakeKK, nil
	default:
		return noise.HandshakePattern{}, ErrUnknownPattern
	}
}

// AEAD is the manual-nonce symmetric cipher split out of a completed
// handshake. Its shape matches flynn/noise's low-level Cipher, obtained via
// CipherState.Cipher() once the handshake has derived traffic keys: the
// caller supplies its own nonce per call, which is what lets the channel
// package run an explicit-nonce sliding window instead of Noise's own
// strictly monotonic counter.
type AEAD interface {
	Encrypt(out []byte, n uint64, ad, plaintext []byte) []byte
	Decrypt(out []byte, n uint64, ad, ciphertext []byte) ([]byte, error)
}

// Keys are the two directional ciphers produced by a completed handshake,
// already oriented for the caller: Send encrypts outbound traffic, Recv
// decrypts inbound traffic. HandshakeHash is the transcript hash a Binder
// signs to tie attested identity to this specific handshake.
type Keys struct {
	Send          AEAD
	Recv          AEAD
	HandshakeHash []byte
}

// Handshake drives one side of a single Noise handshake. It is single-use:
// once Split succeeds the Handshake has nothing further to do and should be
// discarded. A Handshake is not safe for concurrent use.
type Handshake struct {
	pattern Pattern
	role    Role
	state   *noise.HandshakeState
	keys    *Keys
	logger  *logrus.Entry
}

// New constructs a Handshake for the given pattern and role. cfg is
// validated against the pattern's static-key requirements before the
// underlying Noise handshake state is built.
func New(cfg Config) (*Handshake, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "New",
		"package":  "noise",
		"pattern":  cfg.Pattern.String(),
		"role":     cfg.Role.String(),
	})

	if err := cfg.validate(); err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "config_validation_failed",
		}).Error("invalid handshake config")
		return nil, err
	}

	pattern, err := noisePattern(cfg.Pattern)
	if err != nil {
		return nil, err
	}

	cipherSuite := noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

	nc := noise.Config{
		CipherSuite: cipherSuite,
		Pattern:     pattern,
		Initiator:   cfg.Role == Initiator,
	}
	if cfg.StaticKeypair != nil {
		nc.StaticKeypair = noise.DHKey{
			Private: append([]byte(nil), cfg.StaticKeypair.Private[:]...),
			Public:  append([]byte(nil), cfg.StaticKeypair.Public[:]...),
		}
	}
	if len(cfg.PeerStaticPublic) != 0 {
		nc.PeerStatic = append([]byte(nil), cfg.PeerStaticPublic...)
	}

	state, err := noise.NewHandshakeState(nc)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "handshake_state_init_failed",
		}).Error("failed to initialize handshake state")
		return nil, err
	}

	logger.Debug("handshake initialized")

	return &Handshake{
		pattern: cfg.Pattern,
		role:    cfg.Role,
		state:   state,
		logger:  logger,
	}, nil
}

// WriteMessage produces the next outgoing handshake message, carrying
// payload as the (possibly empty) handshake payload. If this message
// completes the handshake, Split becomes usable afterward.
func (h *Handshake) WriteMessage(payload []byte) ([]byte, error) {
	if h.keys != nil {
		return nil, ErrAlreadyComplete
	}

	msg, cs1, cs2, err := h.state.WriteMessage(nil, payload)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "write_message_failed",
			"operation":  "WriteMessage",
		}).Error("handshake write failed")
		return nil, err
	}

	if cs1 != nil && cs2 != nil {
		h.finish(cs1, cs2)
	}

	return msg, nil
}

// ReadMessage processes an incoming handshake message and returns its
// payload. If this message completes the handshake, Split becomes usable
// afterward.
func (h *Handshake) ReadMessage(message []byte) ([]byte, error) {
	if h.keys != nil {
		return nil, ErrAlreadyComplete
	}

	payload, cs1, cs2, err := h.state.ReadMessage(nil, message)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "read_message_failed",
			"operation":  "ReadMessage",
		}).Error("handshake read failed")
		return nil, err
	}

	if cs1 != nil && cs2 != nil {
		h.finish(cs1, cs2)
	}

	return payload, nil
}

// finish derives this side's (send, recv) ciphers from the pair flynn/noise
// returns. cs1 is always the initiator-to-responder cipher and cs2 is
// always the responder-to-initiator cipher, regardless of which call
// (Write or Read) completed the handshake; the responder must swap them to
// get its own (send, recv) pair.
func (h *Handshake) finish(cs1, cs2 *noise.CipherState) {
	var send, recv *noise.CipherState
	if h.role == Initiator {
		send, recv = cs1, cs2
	} else {
		send, recv = cs2, cs1
	}

	h.keys = &Keys{
		Send:          send.Cipher(),
		Recv:          recv.Cipher(),
		HandshakeHash: append([]byte(nil), h.state.ChannelBinding()...),
	}

	h.logger.WithFields(logrus.Fields{
		"operation": "handshake_complete",
	}).Debug("handshake complete")
}

// IsComplete reports whether the handshake has finished and Split will
// succeed.
func (h *Handshake) IsComplete() bool {
	return h.keys != nil
}

// Split returns the traffic ciphers and handshake hash. It fails if the
// handshake has not yet completed.
func (h *Handshake) Split() (*Keys, error) {
	if h.keys == nil {
		return nil, ErrNotComplete
	}
	return h.keys, nil
}

// PeerStaticPublic returns the peer's static public key, as learned during
// the handshake. It is only meaningful for NK (initiator side, where it was
// supplied by the caller) and KK, where both sides authenticate the other's
// static key; for NN it is always empty.
func (h *Handshake) PeerStaticPublic() []byte {
	return h.state.PeerStatic()
}
