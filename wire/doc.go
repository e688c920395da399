// Package wire defines the session core's envelope types and a
// deterministic codec for them. Message maps (attestation_bindings,
// endorsed_evidence) serialize with lexicographically ordered keys so
// that two peers marshaling the same logical message always produce the
// same bytes; encoding/json already guarantees sorted map-key order on
// marshal, which is why this package is a thin wrapper over it rather
// than a hand-rolled encoder.
package wire
