package channel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/noise"
)

// handshakeKeys runs a complete NN handshake and returns both sides' split
// keys, giving tests a real pair of directional AEAD ciphers to frame.
func handshakeKeys(t *testing.T) (client, server *noise.Keys) {
	t.Helper()

	initiator, err := noise.New(noise.Config{Pattern: noise.PatternNN, Role: noise.Initiator})
	require.NoError(t, err)
	responder, err := noise.New(noise.Config{Pattern: noise.PatternNN, Role: noise.Responder})
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage(nil)
	require.NoError(t, err)
	_, err = responder.ReadMessage(msg1)
	require.NoError(t, err)

	msg2, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	_, err = initiator.ReadMessage(msg2)
	require.NoError(t, err)

	client, err = initiator.Split()
	require.NoError(t, err)
	server, err = responder.Split()
	require.NoError(t, err)
	return client, server
}
