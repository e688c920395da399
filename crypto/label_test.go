package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveSessionLabelDeterministic(t *testing.T) {
	hash := []byte("handshake-hash-placeholder-32by")

	a, err := DeriveSessionLabel(hash, "channel-aad", 16)
	require.NoError(t, err)
	b, err := DeriveSessionLabel(hash, "channel-aad", 16)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := DeriveSessionLabel(hash, "other-purpose", 16)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}
