package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveSessionLabel derives a fixed-size label bound to handshakeHash and
// purpose via HKDF-SHA256, following the same raw-material/transcript/info
// shape SAGE's deriveHKDFKey uses for its own post-handshake key
// derivation. It is not used to derive the traffic keys themselves — those
// come straight out of the Noise handshake's Split() — but gives callers a
// deterministic way to bind extra associated data (e.g. a channel
// direction label) to a specific handshake without exposing raw key
// material.
func DeriveSessionLabel(handshakeHash []byte, purpose string, size int) ([]byte, error) {
	h := hkdf.New(sha256.New, handshakeHash, nil, []byte(purpose))
	label := make([]byte, size)
	if _, err := io.ReadFull(h, label); err != nil {
		return nil, fmt.Errorf("crypto: label derivation failed: %w", err)
	}
	return label, nil
}
