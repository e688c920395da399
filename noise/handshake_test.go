package noise

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/crypto"
)

func newKeypair(t *testing.T) *crypto.Keypair {
	t.Helper()
	kp, err := crypto.GenerateStaticKeypair()
	require.NoError(t, err)
	return kp
}

// runHandshake drives a two-message handshake to completion and returns both
// sides' split keys.
func runHandshake(t *testing.T, initCfg, respCfg Config) (*Keys, *Keys) {
	t.Helper()

	initiator, err := New(initCfg)
	require.NoError(t, err)
	responder, err := New(respCfg)
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage(nil)
	require.NoError(t, err)
	require.False(t, initiator.IsComplete())

	_, err = responder.ReadMessage(msg1)
	require.NoError(t, err)

	msg2, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	require.True(t, responder.IsComplete())

	_, err = initiator.ReadMessage(msg2)
	require.NoError(t, err)
	require.True(t, initiator.IsComplete())

	initKeys, err := initiator.Split()
	require.NoError(t, err)
	respKeys, err := responder.Split()
	require.NoError(t, err)

	return initKeys, respKeys
}

func TestNNRoundTrip(t *testing.T) {
	initKeys, respKeys := runHandshake(t,
		Config{Pattern: PatternNN, Role: Initiator},
		Config{Pattern: PatternNN, Role: Responder},
	)

	require.Equal(t, initKeys.HandshakeHash, respKeys.HandshakeHash)

	plaintext := []byte("hello over NN")
	ciphertext := initKeys.Send.Encrypt(nil, 0, nil, plaintext)
	got, err := respKeys.Recv.Decrypt(nil, 0, nil, ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)

	reply := []byte("hello back")
	replyCipher := respKeys.Send.Encrypt(nil, 0, nil, reply)
	gotReply, err := initKeys.Recv.Decrypt(nil, 0, nil, replyCipher)
	require.NoError(t, err)
	require.Equal(t, reply, gotReply)
}

func TestNKRoundTrip(t *testing.T) {
	responderStatic := newKeypair(t)

	initKeys, respKeys := runHandshake(t,
		Config{Pattern: PatternNK, Role: Initiator, PeerStaticPublic: responderStatic.Public[:]},
		Config{Pattern: PatternNK, Role: Responder, StaticKeypair: responderStatic},
	)

	require.Equal(t, initKeys.HandshakeHash, respKeys.HandshakeHash)
}

func TestNKMismatchedPeerKeyFails(t *testing.T) {
	responderStatic := newKeypair(t)
	wrongStatic := newKeypair(t)

	initiator, err := New(Config{
		Pattern:          PatternNK,
		Role:             Initiator,
		PeerStaticPublic: wrongStatic.Public[:],
	})
	require.NoError(t, err)

	responder, err := New(Config{
		Pattern:       PatternNK,
		Role:          Responder,
		StaticKeypair: responderStatic,
	})
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage(nil)
	require.NoError(t, err)

	_, err = responder.ReadMessage(msg1)
	require.Error(t, err)
}

func TestKKRoundTrip(t *testing.T) {
	clientStatic := newKeypair(t)
	serverStatic := newKeypair(t)

	initKeys, respKeys := runHandshake(t,
		Config{
			Pattern:          PatternKK,
			Role:             Initiator,
			StaticKeypair:    clientStatic,
			PeerStaticPublic: serverStatic.Public[:],
		},
		Config{
			Pattern:          PatternKK,
			Role:             Responder,
			StaticKeypair:    serverStatic,
			PeerStaticPublic: clientStatic.Public[:],
		},
	)

	require.Equal(t, initKeys.HandshakeHash, respKeys.HandshakeHash)
}

func TestConfigValidation(t *testing.T) {
	kp := newKeypair(t)

	_, err := New(Config{Pattern: PatternNN, Role: Initiator, StaticKeypair: kp})
	require.ErrorIs(t, err, ErrStaticKeyForbidden)

	_, err = New(Config{Pattern: PatternNK, Role: Initiator})
	require.ErrorIs(t, err, ErrInvalidPeerStaticLen)

	_, err = New(Config{Pattern: PatternNK, Role: Responder})
	require.ErrorIs(t, err, ErrStaticKeyRequired)

	_, err = New(Config{Pattern: PatternKK, Role: Initiator, StaticKeypair: kp})
	require.ErrorIs(t, err, ErrInvalidPeerStaticLen)

	_, err = New(Config{Pattern: Pattern(99), Role: Initiator})
	require.ErrorIs(t, err, ErrUnknownPattern)
}
