// Package noise drives the three Noise Protocol Framework handshake patterns
// the session core uses to bind a cryptographic channel to attested peer
// identities: NN, NK, and KK, all over Curve25519, ChaCha20-Poly1305, and
// SHA-256 via github.com/flynn/noise.
//
// # Pattern selection
//
//	Pattern │ Static keys required                    │ Peer authentication
//	────────┼──────────────────────────────────────────┼──────────────────────
//	NN      │ none                                     │ none (handshake only)
//	NK      │ responder has one, initiator knows it     │ responder authenticated
//	KK      │ both sides have one, each knows the other │ both sides authenticated
//
// NN carries no long-term keys at all and authenticates nothing on its own;
// it is only meaningful when attestation-based binding (see package binding)
// supplies the identity guarantee. NK and KK additionally give the Noise
// layer its own static-key authentication, which the binding layer then
// layers attestation on top of.
//
// A Handshake is a single-use, two-message state machine: construct one with
// New, drive it with WriteMessage/ReadMessage in the order the pattern
// dictates, and call Split once IsComplete reports true to obtain the
// traffic ciphers for the channel package. A Handshake is not safe for
// concurrent use; it is meant to be driven by one goroutine at a time and
// discarded once split, not shared or pooled.
package noise
