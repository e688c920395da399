// Package channel implements the two post-handshake framing disciplines for
// an open session: OrderedEncryptor (strict in-order delivery, implicit
// monotonic nonce) and UnorderedEncryptor (explicit nonce, sliding-window
// replay protection over out-of-order delivery).
//
// Both wrap a pair of noise.AEAD ciphers produced by a completed
// handshake. The sliding-window bookkeeping in UnorderedEncryptor tracks
// used counters as an in-memory bitmap over a bounded window past the
// highest counter seen, since this layer has no filesystem to persist a
// replay set to.
package channel
