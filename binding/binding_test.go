package binding

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/attestation"
)

func ed25519Pair(t *testing.T) (seed [32]byte, public [32]byte) {
	t.Helper()
	_, err := rand.Read(seed[:])
	require.NoError(t, err)

	edPub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	copy(public[:], edPub)
	return seed, public
}

func TestSignAllAndVerifyAllRoundTrip(t *testing.T) {
	seed, pub := ed25519Pair(t)
	binder := NewEd25519Binder(seed)

	handshakeHash := []byte("transcript-hash-placeholder-32b")

	bindings, err := SignAll(map[string]Binder{"provider-a": binder}, handshakeHash)
	require.NoError(t, err)
	require.Contains(t, bindings, "provider-a")

	peerResults := map[string]attestation.AttestationResults{
		"provider-a": {
			Status:    attestation.Success,
			Extracted: map[string][]byte{"signing_public_key": pub[:]},
		},
	}

	require.NoError(t, VerifyAll(bindings, handshakeHash, peerResults))
}

func TestVerifyAllRejectsWrongKey(t *testing.T) {
	seed, _ := ed25519Pair(t)
	_, wrongPub := ed25519Pair(t)
	binder := NewEd25519Binder(seed)

	handshakeHash := []byte("transcript-hash-placeholder-32b")
	bindings, err := SignAll(map[string]Binder{"provider-a": binder}, handshakeHash)
	require.NoError(t, err)

	peerResults := map[string]attestation.AttestationResults{
		"provider-a": {
			Status:    attestation.Success,
			Extracted: map[string][]byte{"signing_public_key": wrongPub[:]},
		},
	}

	err = VerifyAll(bindings, handshakeHash, peerResults)
	require.ErrorIs(t, err, ErrInvalidBinding)
}

func TestVerifyAllRejectsMissingBinding(t *testing.T) {
	_, pub := ed25519Pair(t)

	peerResults := map[string]attestation.AttestationResults{
		"provider-a": {
			Status:    attestation.Success,
			Extracted: map[string][]byte{"signing_public_key": pub[:]},
		},
	}

	err := VerifyAll(map[string]SessionBinding{}, []byte("hash"), peerResults)
	require.ErrorIs(t, err, ErrMissingBinding)
}

func TestVerifyAllIgnoresFailedPeerResults(t *testing.T) {
	peerResults := map[string]attestation.AttestationResults{
		"provider-a": {Status: attestation.Failure, Reason: "bad evidence"},
	}
	require.NoError(t, VerifyAll(map[string]SessionBinding{}, []byte("hash"), peerResults))
}
