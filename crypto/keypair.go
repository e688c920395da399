// Package crypto implements the cryptographic primitives the session core
// depends on: X25519 static keypairs, Ed25519 transcript signing for session
// binding, and the ChaCha20-Poly1305 AEAD used by both the Noise handshake
// and the data channel.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// Keypair is an X25519 static keypair, used as the Noise static key for the
// NK and KK handshake patterns.
type Keypair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateStaticKeypair creates a new random X25519 keypair.
func GenerateStaticKeypair() (*Keypair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "GenerateStaticKeypair",
		"package":  "crypto",
	})

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_type": "key_generation_failed",
			"operation":  "rand.Read",
		}).Error("failed to generate static keypair")
		return nil, err
	}

	kp, err := FromPrivateKey(seed)
	ZeroBytes(seed[:])
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"public_key_preview": fmt.Sprintf("%x", kp.Public[:8]),
		"operation":          "key_generation_success",
	}).Debug("generated static keypair")

	return kp, nil
}

// FromPrivateKey derives a Keypair from an existing 32-byte private scalar,
// applying standard X25519 clamping before deriving the public half.
func FromPrivateKey(secretKey [32]byte) (*Keypair, error) {
	logger := logrus.WithFields(logrus.Fields{
		"function": "FromPrivateKey",
		"package":  "crypto",
	})

	if isZeroKey(secretKey) {
		logger.WithFields(logrus.Fields{
			"error":      "invalid private key: all zeros",
			"error_type": "validation_failed",
		}).Error("private key validation failed")
		return nil, errors.New("invalid private key: all zeros")
	}

	var clamped [32]byte
	copy(clamped[:], secretKey[:])
	clamped[0] &= 248  // clear the bottom 3 bits
	clamped[31] &= 127 // clear the top bit
	clamped[31] |= 64  // set the second-to-top bit

	var pub [32]byte
	curve25519.ScalarBaseMult(&pub, &clamped)

	kp := &Keypair{Public: pub, Private: clamped}

	logger.WithFields(logrus.Fields{
		"public_key_preview": fmt.Sprintf("%x", kp.Public[:8]),
		"operation":          "key_derivation_success",
	}).Debug("derived static keypair from private key")

	return kp, nil
}

// isZeroKey reports whether key consists entirely of zero bytes.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
