// Package attestsession implements an attested secure-session core: a
// protocol engine combining remote attestation, a Noise-pattern handshake
// bound to the attested identities, and an AEAD-protected data channel
// with either strictly ordered or windowed out-of-order delivery.
//
// A session progresses through four phases in order — Attesting,
// Handshaking, Open, Closed — driven by ClientSession and ServerSession on
// either end of a transport the caller owns. Both types expose the same
// four operations: GetOutgoingMessage to obtain the next message to send,
// PutIncomingMessage to process a received one, Write/Read for the open
// data channel, and IsOpen to check phase. Transport framing and delivery
// are the caller's responsibility; this package only produces and
// consumes the wire envelope types in package wire.
package attestsession
