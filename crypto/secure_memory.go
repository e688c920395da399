package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe erases the contents of data in place. It returns an error if
// data is nil.
//
// subtle.XORBytes performs a constant-time XOR that the compiler cannot
// optimize away; XORing data with itself (x XOR x = 0) zeros it while
// resisting dead-store elimination.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	subtle.XORBytes(data, data, data)
	runtime.KeepAlive(data)

	return nil
}

// ZeroBytes erases data, ignoring the error SecureWipe returns for nil.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeypair securely erases the private half of kp.
func WipeKeypair(kp *Keypair) error {
	if kp == nil {
		return errors.New("cannot wipe nil keypair")
	}
	return SecureWipe(kp.Private[:])
}
