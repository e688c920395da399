package attestsession

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/binding"
	"github.com/opd-ai/attestsession/crypto"
	"github.com/opd-ai/attestsession/handshake"
	"github.com/opd-ai/attestsession/sessionerr"
)

func requireConfigInvalid(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var sessErr *sessionerr.Error
	require.ErrorAs(t, err, &sessErr)
	require.Equal(t, sessionerr.ConfigInvalid, sessErr.Code)
}

func TestValidateHandshakeKeysNNRejectsStaticKeys(t *testing.T) {
	selfKey, err := crypto.GenerateStaticKeypair()
	require.NoError(t, err)

	cfg := SessionConfig{HandshakeType: handshake.TypeNN, SelfStaticPrivateKey: selfKey}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Client))

	cfg = SessionConfig{HandshakeType: handshake.TypeNN, PeerStaticPublicKey: make([]byte, 32)}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Server))
}

func TestValidateHandshakeKeysNKRequiresRoleAppropriateKeys(t *testing.T) {
	cfg := SessionConfig{HandshakeType: handshake.TypeNK}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Client))

	cfg = SessionConfig{HandshakeType: handshake.TypeNK}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Server))

	selfKey, err := crypto.GenerateStaticKeypair()
	require.NoError(t, err)

	cfg = SessionConfig{HandshakeType: handshake.TypeNK, PeerStaticPublicKey: make([]byte, 32), SelfStaticPrivateKey: selfKey}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Client))

	cfg = SessionConfig{HandshakeType: handshake.TypeNK, SelfStaticPrivateKey: selfKey}
	require.NoError(t, cfg.validateHandshakeKeys(attestation.Server))
}

func TestValidateHandshakeKeysKKRequiresBothKeys(t *testing.T) {
	cfg := SessionConfig{HandshakeType: handshake.TypeKK}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Client))

	selfKey, err := crypto.GenerateStaticKeypair()
	require.NoError(t, err)

	cfg = SessionConfig{HandshakeType: handshake.TypeKK, SelfStaticPrivateKey: selfKey}
	requireConfigInvalid(t, cfg.validateHandshakeKeys(attestation.Client))

	cfg = SessionConfig{
		HandshakeType:        handshake.TypeKK,
		SelfStaticPrivateKey: selfKey,
		PeerStaticPublicKey:  make([]byte, 32),
	}
	require.NoError(t, cfg.validateHandshakeKeys(attestation.Client))
}

func TestValidateBindingCoverageRequiresSelfAttesterAndPeerVerifier(t *testing.T) {
	cfg := SessionConfig{AttestationType: attestation.Bidirectional}
	requireConfigInvalid(t, cfg.validateBindingCoverage(attestation.Client))

	cfg = SessionConfig{
		AttestationType: attestation.Bidirectional,
		SelfAttesters:   map[string]attestation.Attester{"provider-a": mockAttester{id: "client"}},
	}
	requireConfigInvalid(t, cfg.validateBindingCoverage(attestation.Client))
}

func TestValidateBindingCoverageRequiresSharedProviderID(t *testing.T) {
	cfg := SessionConfig{
		AttestationType: attestation.Bidirectional,
		SelfAttesters:   map[string]attestation.Attester{"provider-a": mockAttester{id: "client"}},
		PeerVerifiers:   map[string]attestation.Verifier{"provider-b": mockVerifier{}},
	}
	requireConfigInvalid(t, cfg.validateBindingCoverage(attestation.Client))

	cfg = SessionConfig{
		AttestationType: attestation.Bidirectional,
		SelfAttesters:   map[string]attestation.Attester{"provider-a": mockAttester{id: "client"}},
		PeerVerifiers:   map[string]attestation.Verifier{"provider-a": mockVerifier{}},
	}
	require.NoError(t, cfg.validateBindingCoverage(attestation.Client))
}

func TestValidateBindingCoverageIgnoresUnattested(t *testing.T) {
	cfg := SessionConfig{AttestationType: attestation.Unattested}
	require.NoError(t, cfg.validateBindingCoverage(attestation.Client))
}

func TestValidateAcceptsCompleteConfigWithoutSessionBinders(t *testing.T) {
	cfg := SessionConfig{
		AttestationType: attestation.Bidirectional,
		HandshakeType:   handshake.TypeNN,
		SelfAttesters:   map[string]attestation.Attester{"provider-a": mockAttester{id: "client"}},
		SelfEndorsers:   map[string]attestation.Endorser{"provider-a": mockEndorser{}},
		PeerVerifiers:   map[string]attestation.Verifier{"provider-a": mockVerifier{}},
		SessionBinders:  map[string]binding.Binder{},
	}
	require.NoError(t, cfg.validate(attestation.Client))
}
