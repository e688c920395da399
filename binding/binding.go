package binding

import (
	"errors"
	"fmt"

	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/crypto"
)

// Binder signs a handshake transcript hash, tying a session to an
// attested identity.
type Binder interface {
	Sign(handshakeHash []byte) ([]byte, error)
}

// Ed25519Binder signs with a 32-byte Ed25519 seed, the same key an
// attestation Verifier's "signing_public_key" extracted field is expected
// to correspond to.
type Ed25519Binder struct {
	privateKey [32]byte
}

// NewEd25519Binder constructs a Binder from a 32-byte Ed25519 seed.
func NewEd25519Binder(privateKey [32]byte) *Ed25519Binder {
	return &Ed25519Binder{privateKey: privateKey}
}

func (b *Ed25519Binder) Sign(handshakeHash []byte) ([]byte, error) {
	sig, err := crypto.Sign(handshakeHash, b.privateKey)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

// SessionBinding is the wire representation of one signed binding.
type SessionBinding struct {
	Binding []byte `json:"binding"`
}

// SignAll produces a SessionBinding for every configured binder, over the
// same handshake hash.
func SignAll(binders map[string]Binder, handshakeHash []byte) (map[string]SessionBinding, error) {
	out := make(map[string]SessionBinding, len(binders))
	for id, binder := range binders {
		sig, err := binder.Sign(handshakeHash)
		if err != nil {
			return nil, fmt.Errorf("binding: provider %q sign failed: %w", id, err)
		}
		out[id] = SessionBinding{Binding: sig}
	}
	return out, nil
}

var (
	ErrMissingBinding    = errors.New("binding: required binding missing")
	ErrMissingSigningKey = errors.New("binding: peer attestation result has no signing_public_key")
	ErrInvalidBinding    = errors.New("binding: signature verification failed")
)

// VerifyAll checks that every provider ID this side verified via
// attestation (peerResults) has a corresponding binding in bindings that
// validly signs handshakeHash under that provider's extracted
// signing_public_key. A missing or invalid binding for any such ID is an
// error; provider IDs in bindings with no matching peerResults entry are
// ignored, mirroring the unmatched-ID semantics of attestation itself.
func VerifyAll(bindings map[string]SessionBinding, handshakeHash []byte, peerResults map[string]attestation.AttestationResults) error {
	for id, result := range peerResults {
		if result.Status != attestation.Success {
			continue
		}

		key, ok := result.SigningPublicKey()
		if !ok {
			return fmt.Errorf("%w: provider %q", ErrMissingSigningKey, id)
		}

		sb, ok := bindings[id]
		if !ok {
			return fmt.Errorf("%w: provider %q", ErrMissingBinding, id)
		}

		if err := verify(handshakeHash, sb, key); err != nil {
			return fmt.Errorf("%w: provider %q: %v", ErrInvalidBinding, id, err)
		}
	}
	return nil
}

func verify(handshakeHash []byte, sb SessionBinding, signingPublicKey []byte) error {
	if len(signingPublicKey) != 32 {
		return errors.New("signing public key must be 32 bytes")
	}
	if len(sb.Binding) != crypto.SignatureSize {
		return errors.New("binding signature has wrong length")
	}

	var pub [32]byte
	copy(pub[:], signingPublicKey)
	var sig crypto.Signature
	copy(sig[:], sb.Binding)

	ok, err := crypto.Verify(handshakeHash, sig, pub)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("signature mismatch")
	}
	return nil
}
