package crypto

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize and TagSize are fixed by the single cipher suite the session
// core supports: ChaCha20-Poly1305 with 12-byte nonces and 16-byte tags.
const (
	NonceSize = chacha20poly1305.NonceSize
	TagSize   = chacha20poly1305.Overhead
	KeySize   = chacha20poly1305.KeySize
)

// ErrInvalidTag is returned when AEAD authentication fails during Open.
var ErrInvalidTag = errors.New("crypto: AEAD authentication failed")

// ErrInvalidNonceLength is returned when a caller-supplied nonce is not
// NonceSize bytes.
var ErrInvalidNonceLength = errors.New("crypto: invalid nonce length")

// Seal encrypts and authenticates plaintext under key and nonce, binding aad
// into the tag. The returned ciphertext is encrypted||tag.
func Seal(key [KeySize]byte, nonce []byte, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceLength
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open verifies and decrypts ciphertext (encrypted||tag) under key and
// nonce, checking aad against the tag. Returns ErrInvalidTag on any
// authentication failure.
func Open(key [KeySize]byte, nonce []byte, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceLength
	}

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalidTag
	}
	return plaintext, nil
}
