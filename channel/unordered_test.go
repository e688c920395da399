package channel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/crypto"
	"github.com/opd-ai/attestsession/sessionerr"
)

func decryptKind(t *testing.T, err error) sessionerr.DecryptKind {
	t.Helper()
	var sessErr *sessionerr.Error
	require.ErrorAs(t, err, &sessErr)
	return sessErr.DecryptKind
}

func TestUnorderedWindow3(t *testing.T) {
	client, server := handshakeKeys(t)

	sender := NewUnorderedEncryptor(client.Send, client.Recv, 3)
	receiver := NewUnorderedEncryptor(server.Send, server.Recv, 3)

	ciphertexts := make([][]byte, 6)
	for i := range ciphertexts {
		ct, counter, err := sender.Seal([]byte("msg"), nil)
		require.NoError(t, err)
		require.EqualValues(t, i, counter)
		ciphertexts[i] = ct
	}

	// deliver 3, 1, 2
	for _, i := range []int{3, 1, 2} {
		_, err := receiver.Open(ciphertexts[i], nil, uint64(i))
		require.NoError(t, err)
	}

	// replay 3, 2, 1 all fail Replay
	for _, i := range []int{3, 2, 1} {
		_, err := receiver.Open(ciphertexts[i], nil, uint64(i))
		require.Error(t, err)
		require.Equal(t, sessionerr.Replay, decryptKind(t, err))
	}

	// deliver 0: fails OutsideWindow
	_, err := receiver.Open(ciphertexts[0], nil, 0)
	require.Error(t, err)
	require.Equal(t, sessionerr.OutsideWindow, decryptKind(t, err))

	// deliver 4, 5: succeed
	for _, i := range []int{4, 5} {
		_, err := receiver.Open(ciphertexts[i], nil, uint64(i))
		require.NoError(t, err)
	}
}

func TestUnorderedWindow0Reorder(t *testing.T) {
	client, server := handshakeKeys(t)

	sender := NewUnorderedEncryptor(client.Send, client.Recv, 0)
	receiver := NewUnorderedEncryptor(server.Send, server.Recv, 0)

	first, _, err := sender.Seal([]byte("first"), nil)
	require.NoError(t, err)
	second, _, err := sender.Seal([]byte("second"), nil)
	require.NoError(t, err)

	_, err = receiver.Open(second, nil, 1)
	require.NoError(t, err)

	_, err = receiver.Open(first, nil, 0)
	require.Error(t, err)
	require.Equal(t, sessionerr.OutOfOrder, decryptKind(t, err))
}

// TestUnorderedAADBoundToHandshakeLabel shows the sender and receiver
// binding their AAD to a label derived from the handshake hash: a message
// opened with the matching label succeeds, and a message opened with a
// label derived from the same hash for a different purpose fails on AAD
// mismatch rather than being silently accepted.
func TestUnorderedAADBoundToHandshakeLabel(t *testing.T) {
	client, server := handshakeKeys(t)
	label, err := crypto.DeriveSessionLabel(client.HandshakeHash, "unordered-channel-aad", 16)
	require.NoError(t, err)

	sender := NewUnorderedEncryptor(client.Send, client.Recv, 4)
	receiver := NewUnorderedEncryptor(server.Send, server.Recv, 4)

	ct, counter, err := sender.Seal([]byte("bound"), label)
	require.NoError(t, err)

	pt, err := receiver.Open(ct, label, counter)
	require.NoError(t, err)
	require.Equal(t, []byte("bound"), pt)

	otherLabel, err := crypto.DeriveSessionLabel(client.HandshakeHash, "different-purpose", 16)
	require.NoError(t, err)

	ct2, counter2, err := sender.Seal([]byte("bound-2"), label)
	require.NoError(t, err)
	_, err = receiver.Open(ct2, otherLabel, counter2)
	require.Error(t, err)
}
