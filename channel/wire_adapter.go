package channel

import (
	"encoding/binary"
	"errors"

	"github.com/opd-ai/attestsession/noise"
	"github.com/opd-ai/attestsession/sessionerr"
)

// WireEncryptor adapts an OrderedEncryptor or UnorderedEncryptor to the
// session orchestrator's wire-level shape, where the windowed
// discipline's counter travels in EncryptedMessage.Nonce as an 8-byte
// big-endian integer and the ordered discipline carries no nonce at all:
// its counter is implicit and never touches the wire.
type WireEncryptor interface {
	Seal(plaintext, aad []byte) (ciphertext, nonce []byte, err error)
	Open(ciphertext, aad, nonce []byte) ([]byte, error)
}

type orderedWireEncryptor struct {
	*OrderedEncryptor
}

// NewOrderedWireEncryptor wraps an ordered channel encryptor for wire use.
func NewOrderedWireEncryptor(send, recv noise.AEAD) WireEncryptor {
	return orderedWireEncryptor{NewOrderedEncryptor(send, recv)}
}

func (o orderedWireEncryptor) Seal(plaintext, aad []byte) ([]byte, []byte, error) {
	ct, err := o.OrderedEncryptor.Seal(plaintext, aad)
	return ct, nil, err
}

func (o orderedWireEncryptor) Open(ciphertext, aad, _ []byte) ([]byte, error) {
	return o.OrderedEncryptor.Open(ciphertext, aad)
}

type unorderedWireEncryptor struct {
	*UnorderedEncryptor
}

// NewUnorderedWireEncryptor wraps a windowed channel encryptor for wire
// use, with the given window size.
func NewUnorderedWireEncryptor(send, recv noise.AEAD, window uint64) WireEncryptor {
	return unorderedWireEncryptor{NewUnorderedEncryptor(send, recv, window)}
}

func (u unorderedWireEncryptor) Seal(plaintext, aad []byte) ([]byte, []byte, error) {
	ct, counter, err := u.UnorderedEncryptor.Seal(plaintext, aad)
	if err != nil {
		return nil, nil, err
	}
	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, counter)
	return ct, nonce, nil
}

func (u unorderedWireEncryptor) Open(ciphertext, aad, nonce []byte) ([]byte, error) {
	if len(nonce) != 8 {
		return nil, sessionerr.NewDecrypt(sessionerr.OutOfOrder, errors.New("missing or malformed counter nonce"))
	}
	counter := binary.BigEndian.Uint64(nonce)
	return u.UnorderedEncryptor.Open(ciphertext, aad, counter)
}
