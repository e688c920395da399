package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/binding"
)

func TestSessionRequestRoundTrip(t *testing.T) {
	original := SessionRequest{
		HandshakeRequest: &HandshakeRequest{
			HandshakeType: &NoiseHandshakeMessage{Message: []byte{1, 2, 3}},
			AttestationBindings: map[string]binding.SessionBinding{
				"provider-a": {Binding: []byte{4, 5, 6}},
			},
		},
	}

	data, err := Marshal(original)
	require.NoError(t, err)

	var decoded SessionRequest
	require.NoError(t, Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}

func TestEncryptedMessageRoundTrip(t *testing.T) {
	original := SessionResponse{
		EncryptedMessage: &EncryptedMessage{
			Ciphertext:     []byte("ciphertext"),
			AssociatedData: []byte("ad"),
			Nonce:          []byte{0, 0, 0, 0, 0, 0, 0, 7},
		},
	}

	data, err := Marshal(original)
	require.NoError(t, err)

	var decoded SessionResponse
	require.NoError(t, Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}

// TestMarshalIsDeterministicAcrossInsertionOrder confirms that
// serializing the same map contents in different insertion orders
// produces byte-identical output, since encoding/json sorts map keys on
// marshal.
func TestMarshalIsDeterministicAcrossInsertionOrder(t *testing.T) {
	a := map[string]attestation.EndorsedEvidence{}
	a["zebra"] = attestation.EndorsedEvidence{Evidence: []byte("z-evidence")}
	a["alpha"] = attestation.EndorsedEvidence{Evidence: []byte("a-evidence")}
	a["mango"] = attestation.EndorsedEvidence{Evidence: []byte("m-evidence")}

	b := map[string]attestation.EndorsedEvidence{}
	b["mango"] = attestation.EndorsedEvidence{Evidence: []byte("m-evidence")}
	b["alpha"] = attestation.EndorsedEvidence{Evidence: []byte("a-evidence")}
	b["zebra"] = attestation.EndorsedEvidence{Evidence: []byte("z-evidence")}

	reqA := attestation.AttestRequest{EndorsedEvidence: a}
	reqB := attestation.AttestRequest{EndorsedEvidence: b}

	bytesA, err := Marshal(reqA)
	require.NoError(t, err)
	bytesB, err := Marshal(reqB)
	require.NoError(t, err)

	require.Equal(t, bytesA, bytesB)
}

func TestAttestRequestRoundTrip(t *testing.T) {
	original := SessionRequest{
		AttestRequest: &attestation.AttestRequest{
			EndorsedEvidence: map[string]attestation.EndorsedEvidence{
				"provider-a": {Evidence: []byte("evidence"), Endorsements: []byte("endorsements")},
			},
		},
	}

	data, err := Marshal(original)
	require.NoError(t, err)

	var decoded SessionRequest
	require.NoError(t, Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}
