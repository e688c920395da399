package attestsession

import (
	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/binding"
	"github.com/opd-ai/attestsession/crypto"
	"github.com/opd-ai/attestsession/handshake"
	"github.com/opd-ai/attestsession/sessionerr"
)

// EncryptorKind selects the data-channel delivery discipline once the
// session opens.
type EncryptorKind int

const (
	// Ordered requires messages to arrive in exactly the order they were
	// sent; any gap or reorder surfaces as a decrypt failure.
	Ordered EncryptorKind = iota
	// Unordered accepts messages within a sliding window of WindowSize
	// counters behind the highest counter seen so far.
	Unordered
)

// SessionConfig configures one side of a session end to end: which
// attestation Type and handshake Type to run, the key material and
// provider registries each phase needs, and the data-channel discipline
// to use once the session opens.
type SessionConfig struct {
	AttestationType attestation.Type
	HandshakeType   handshake.Type

	SelfStaticPrivateKey *crypto.Keypair
	PeerStaticPublicKey  []byte

	SelfAttesters map[string]attestation.Attester
	SelfEndorsers map[string]attestation.Endorser
	PeerVerifiers map[string]attestation.Verifier
	Aggregator    attestation.Aggregator

	SessionBinders map[string]binding.Binder

	Encryptor  EncryptorKind
	WindowSize uint64
}

// validate checks the config against the static-key and binding-coverage
// rules for role. SessionBinders is not checked: a Bidirectional config
// with no binder for a shared provider ID passes validation, and the
// missing binding is only detected by the peer during the handshake.
func (c SessionConfig) validate(role attestation.Role) error {
	if err := c.validateHandshakeKeys(role); err != nil {
		return err
	}
	return c.validateBindingCoverage(role)
}

func (c SessionConfig) validateHandshakeKeys(role attestation.Role) error {
	switch c.HandshakeType {
	case handshake.TypeNN:
		if c.SelfStaticPrivateKey != nil {
			return sessionerr.NewConfigInvalid("NN handshake forbids a self static private key")
		}
		if len(c.PeerStaticPublicKey) != 0 {
			return sessionerr.NewConfigInvalid("NN handshake forbids a peer static public key")
		}

	case handshake.TypeNK:
		if role == attestation.Client {
			if len(c.PeerStaticPublicKey) != 32 {
				return sessionerr.NewConfigInvalid("NK handshake requires a 32-byte peer static public key on the client")
			}
			if c.SelfStaticPrivateKey != nil {
				return sessionerr.NewConfigInvalid("NK handshake forbids a self static private key on the client")
			}
		} else {
			if c.SelfStaticPrivateKey == nil {
				return sessionerr.NewConfigInvalid("NK handshake requires a self static private key on the server")
			}
			if len(c.PeerStaticPublicKey) != 0 {
				return sessionerr.NewConfigInvalid("NK handshake forbids a peer static public key on the server")
			}
		}

	case handshake.TypeKK:
		if c.SelfStaticPrivateKey == nil {
			return sessionerr.NewConfigInvalid("KK handshake requires a self static private key")
		}
		if len(c.PeerStaticPublicKey) != 32 {
			return sessionerr.NewConfigInvalid("KK handshake requires a 32-byte peer static public key")
		}

	default:
		return sessionerr.NewConfigInvalid("unknown handshake type")
	}

	return nil
}

// validateBindingCoverage enforces that Bidirectional attestation has at
// least one self-attester and one peer-verifier, and that their provider
// IDs overlap by at least one, since a session binding is meaningless
// without both a signer on this side and a matching verifier checking the
// peer's signing key for the same provider.
func (c SessionConfig) validateBindingCoverage(role attestation.Role) error {
	if c.AttestationType != attestation.Bidirectional {
		return nil
	}

	if !c.AttestationType.RequiresSelfAttestation(role) || len(c.SelfAttesters) == 0 {
		return sessionerr.NewConfigInvalid("bidirectional attestation requires at least one self-attester")
	}
	if !c.AttestationType.RequiresPeerVerification(role) || len(c.PeerVerifiers) == 0 {
		return sessionerr.NewConfigInvalid("bidirectional attestation requires at least one peer-verifier")
	}

	sharedID := false
	for id := range c.SelfAttesters {
		if _, ok := c.PeerVerifiers[id]; ok {
			sharedID = true
			break
		}
	}
	if !sharedID {
		return sessionerr.NewConfigInvalid("bidirectional attestation requires a shared provider ID between self-attesters and peer-verifiers")
	}

	return nil
}

func (c SessionConfig) attestationConfig() attestation.Config {
	return attestation.Config{
		Type:          c.AttestationType,
		SelfAttesters: c.SelfAttesters,
		SelfEndorsers: c.SelfEndorsers,
		PeerVerifiers: c.PeerVerifiers,
		Aggregator:    c.Aggregator,
	}
}

func (c SessionConfig) handshakeConfig() handshake.Config {
	return handshake.Config{
		Type:                 c.HandshakeType,
		SelfStaticPrivateKey: c.SelfStaticPrivateKey,
		PeerStaticPublicKey:  c.PeerStaticPublicKey,
		SessionBinders:       c.SessionBinders,
	}
}
