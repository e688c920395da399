package wire

import "encoding/json"

// Marshal serializes v deterministically: encoding/json sorts map keys
// lexicographically on every marshal, so the same logical message always
// yields the same bytes. These bytes do not enter the Noise handshake
// hash: the handshake messages carry empty Noise payloads, and session
// bindings travel beside the Noise message rather than inside it.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal parses data into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
