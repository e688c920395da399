package channel

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/noise"
	"github.com/opd-ai/attestsession/sessionerr"
)

// UnorderedEncryptor frames messages with an explicit counter the sender
// embeds in the wire nonce. The receiver accepts any message whose counter
// falls within a sliding window of size Window past the highest counter
// seen so far, rejecting anything older (OutsideWindow) or already seen
// (Replay). Window == 0 degrades to strict ordering: only a strictly
// increasing counter is accepted.
type UnorderedEncryptor struct {
	mu     sync.Mutex
	send   noise.AEAD
	recv   noise.AEAD
	window uint64

	sendCounter uint64

	haveHigh bool
	high     uint64
	bitmap   uint64 // bit i set means counter (high-i) has been accepted; only i < window is consulted

	logger *logrus.Entry
}

// NewUnorderedEncryptor builds an UnorderedEncryptor with the given
// replay-window size. window must fit in 64 bits of bitmap (<= 64); the
// spec's seed scenarios use window sizes of 0 and 3.
func NewUnorderedEncryptor(send, recv noise.AEAD, window uint64) *UnorderedEncryptor {
	return &UnorderedEncryptor{
		send:   send,
		recv:   recv,
		window: window,
		logger: logrus.WithFields(logrus.Fields{
			"package":    "channel",
			"discipline": "unordered",
			"window":     window,
		}),
	}
}

// Seal encrypts plaintext under the next outbound counter and returns
// (ciphertext, counter). The caller is responsible for carrying counter to
// the peer, typically in the wire envelope's explicit nonce field.
func (e *UnorderedEncryptor) Seal(plaintext, aad []byte) (ciphertext []byte, counter uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sendCounter == ^uint64(0) {
		return nil, 0, sessionerr.NewDecrypt(sessionerr.NonceExhausted, nil)
	}

	counter = e.sendCounter
	ciphertext = e.send.Encrypt(nil, counter, aad, plaintext)
	e.sendCounter++

	return ciphertext, counter, nil
}

// Open decrypts ciphertext received with the given explicit counter,
// applying the sliding-window replay check before attempting
// authentication.
func (e *UnorderedEncryptor) Open(ciphertext, aad []byte, counter uint64) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkWindow(counter); err != nil {
		return nil, err
	}

	plaintext, err := e.recv.Decrypt(nil, counter, aad, ciphertext)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"operation": "Open",
			"counter":   counter,
		}).Warn("unordered decrypt authentication failed")
		return nil, sessionerr.NewDecrypt(sessionerr.Tag, err)
	}

	e.accept(counter)
	return plaintext, nil
}

// checkWindow reports a replay/ordering error without mutating state, or
// nil if counter is acceptable pending authentication.
func (e *UnorderedEncryptor) checkWindow(counter uint64) error {
	if !e.haveHigh {
		return nil
	}

	if counter > e.high {
		return nil
	}

	if e.window == 0 {
		e.logger.WithFields(logrus.Fields{
			"operation": "checkWindow",
			"counter":   counter,
			"high":      e.high,
		}).Warn("out-of-order message rejected under zero-window discipline")
		return sessionerr.NewDecrypt(sessionerr.OutOfOrder, nil)
	}

	if e.window <= e.high && counter <= e.high-e.window {
		return sessionerr.NewDecrypt(sessionerr.OutsideWindow, nil)
	}

	offset := e.high - counter
	if e.bitmap&(1<<offset) != 0 {
		return sessionerr.NewDecrypt(sessionerr.Replay, nil)
	}

	return nil
}

// accept records counter as consumed, after successful authentication.
func (e *UnorderedEncryptor) accept(counter uint64) {
	if !e.haveHigh {
		e.haveHigh = true
		e.high = counter
		e.bitmap = 1
		return
	}

	if counter > e.high {
		shift := counter - e.high
		if shift >= 64 {
			e.bitmap = 0
		} else {
			e.bitmap <<= shift
		}
		e.bitmap |= 1
		e.high = counter
		return
	}

	offset := e.high - counter
	e.bitmap |= 1 << offset
}
