package wire

import (
	"github.com/opd-ai/attestsession/attestation"
	"github.com/opd-ai/attestsession/binding"
)

// NoiseHandshakeMessage carries one wire-level Noise handshake message.
// flynn/noise's WriteMessage/ReadMessage already produce and consume a
// single pre-framed buffer (e, optionally encrypted s, then payload
// ciphertext, all concatenated), so Message carries that buffer whole
// rather than splitting it back into its component tokens.
type NoiseHandshakeMessage struct {
	Message []byte `json:"message"`
}

// HandshakeRequest is the client's handshake-phase message.
type HandshakeRequest struct {
	HandshakeType       *NoiseHandshakeMessage            `json:"handshake_type"`
	AttestationBindings map[string]binding.SessionBinding `json:"attestation_bindings"`
}

// HandshakeResponse is the server's handshake-phase reply.
type HandshakeResponse struct {
	HandshakeType       *NoiseHandshakeMessage            `json:"handshake_type"`
	AttestationBindings map[string]binding.SessionBinding `json:"attestation_bindings"`
}

// EncryptedMessage is a single post-handshake channel frame.
// AssociatedData is populated whenever the sender bound the message to
// additional authenticated data; Nonce carries the explicit counter the
// unordered discipline needs on the wire (the ordered discipline's
// counter is implicit and never appears here).
type EncryptedMessage struct {
	Ciphertext     []byte `json:"ciphertext"`
	AssociatedData []byte `json:"associated_data,omitempty"`
	Nonce          []byte `json:"nonce,omitempty"`
}

// SessionRequest is the client-to-server envelope for one message of any
// session phase. Exactly one field is populated.
type SessionRequest struct {
	AttestRequest    *attestation.AttestRequest `json:"attest_request,omitempty"`
	HandshakeRequest *HandshakeRequest          `json:"handshake_request,omitempty"`
	EncryptedMessage *EncryptedMessage          `json:"encrypted_message,omitempty"`
}

// SessionResponse is the server-to-client envelope for one message of any
// session phase. Exactly one field is populated.
type SessionResponse struct {
	AttestResponse    *attestation.AttestResponse `json:"attest_response,omitempty"`
	HandshakeResponse *HandshakeResponse          `json:"handshake_response,omitempty"`
	EncryptedMessage  *EncryptedMessage           `json:"encrypted_message,omitempty"`
}
