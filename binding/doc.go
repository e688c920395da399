// Package binding closes the gap between attestation ("who you are") and
// the Noise handshake ("this specific channel"): it signs the handshake
// transcript hash with the same signing key an attestation Verifier
// extracted, and verifies that signature on the peer's side against the
// matching extracted key.
package binding
