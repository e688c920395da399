package crypto

import (
	"crypto/ed25519"
	"errors"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Signature is a detached Ed25519 signature, used by a session Binder to
// sign a Noise handshake hash.
type Signature [SignatureSize]byte

// Sign produces an Ed25519 signature of message under the 32-byte seed
// privateKey. message is typically a 32-byte handshake hash.
func Sign(message []byte, privateKey [32]byte) (Signature, error) {
	if len(message) == 0 {
		return Signature{}, errors.New("empty message")
	}

	// Ed25519 private keys are 64 bytes (32-byte seed + 32-byte public key).
	edPrivateKey := ed25519.NewKeyFromSeed(privateKey[:])
	signatureBytes := ed25519.Sign(edPrivateKey, message)

	var signature Signature
	copy(signature[:], signatureBytes)

	return signature, nil
}

// Verify reports whether signature is a valid Ed25519 signature of message
// under publicKey.
func Verify(message []byte, signature Signature, publicKey [32]byte) (bool, error) {
	if len(message) == 0 {
		return false, errors.New("empty message")
	}

	var edPublicKey [ed25519.PublicKeySize]byte
	copy(edPublicKey[:], publicKey[:])

	return ed25519.Verify(edPublicKey[:], message, signature[:]), nil
}
