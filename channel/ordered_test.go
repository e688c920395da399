package channel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/sessionerr"
)

func TestOrderedRoundTrip(t *testing.T) {
	client, server := handshakeKeys(t)

	clientSide := NewOrderedEncryptor(client.Send, client.Recv)
	serverSide := NewOrderedEncryptor(server.Send, server.Recv)

	messages := [][]byte{{1, 2, 3, 4}, {4, 3, 2, 1}, {}}
	for _, m := range messages {
		ciphertext, err := clientSide.Seal(m, nil)
		require.NoError(t, err)

		plaintext, err := serverSide.Open(ciphertext, nil)
		require.NoError(t, err)
		require.Equal(t, m, plaintext)
	}
}

func TestOrderedRejectsGap(t *testing.T) {
	client, server := handshakeKeys(t)

	clientSide := NewOrderedEncryptor(client.Send, client.Recv)
	serverSide := NewOrderedEncryptor(server.Send, server.Recv)

	first, err := clientSide.Seal([]byte("one"), nil)
	require.NoError(t, err)
	second, err := clientSide.Seal([]byte("two"), nil)
	require.NoError(t, err)

	_, err = serverSide.Open(second, nil)
	require.Error(t, err)
	var sessErr *sessionerr.Error
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, sessionerr.OutOfOrder, sessErr.DecryptKind)

	plaintext, err := serverSide.Open(first, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("one"), plaintext)
}
