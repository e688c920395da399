package channel

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/noise"
	"github.com/opd-ai/attestsession/sessionerr"
)

// OrderedEncryptor frames messages with a 32-bit counter nonce that both
// sides keep in lockstep; the counter itself is never sent on the wire.
// Decryption requires messages to arrive in the exact order they were
// sent — a gap or reorder desynchronizes the receiver's implicit counter
// from the sender's and surfaces as an OutOfOrder decrypt failure.
type OrderedEncryptor struct {
	mu   sync.Mutex
	send noise.AEAD
	recv noise.AEAD

	sendCounter uint32
	recvCounter uint32

	sendExhausted bool
	recvExhausted bool

	logger *logrus.Entry
}

// NewOrderedEncryptor builds an OrderedEncryptor from the two directional
// ciphers produced by a completed handshake.
func NewOrderedEncryptor(send, recv noise.AEAD) *OrderedEncryptor {
	return &OrderedEncryptor{
		send: send,
		recv: recv,
		logger: logrus.WithFields(logrus.Fields{
			"package": "channel",
			"discipline": "ordered",
		}),
	}
}

// Seal encrypts plaintext under the next outbound counter, returning the
// ciphertext (encrypted || tag). The counter is never transmitted; both
// sides derive it implicitly from message order. Seal fails with
// NonceExhausted once the 32-bit counter space is used up.
func (e *OrderedEncryptor) Seal(plaintext, aad []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sendExhausted {
		return nil, sessionerr.NewDecrypt(sessionerr.NonceExhausted, nil)
	}

	ciphertext := e.send.Encrypt(nil, uint64(e.sendCounter), aad, plaintext)

	if e.sendCounter == ^uint32(0) {
		e.sendExhausted = true
	} else {
		e.sendCounter++
	}

	return ciphertext, nil
}

// Open decrypts ciphertext under the next expected inbound counter. On
// success the receiver's counter advances; on any AEAD failure the
// message is dropped and an OutOfOrder error is returned without
// advancing, so a correctly-ordered later message can still succeed.
func (e *OrderedEncryptor) Open(ciphertext, aad []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recvExhausted {
		return nil, sessionerr.NewDecrypt(sessionerr.NonceExhausted, nil)
	}

	plaintext, err := e.recv.Decrypt(nil, uint64(e.recvCounter), aad, ciphertext)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"operation": "Open",
			"counter":   e.recvCounter,
		}).Warn("ordered decrypt failed, message dropped")
		return nil, sessionerr.NewDecrypt(sessionerr.OutOfOrder, err)
	}

	if e.recvCounter == ^uint32(0) {
		e.recvExhausted = true
	} else {
		e.recvCounter++
	}

	return plaintext, nil
}
