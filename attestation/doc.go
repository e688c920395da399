// Package attestation implements the remote-attestation exchange: the
// Attester/Endorser/Verifier contracts, the per-side provider state
// machine that drives AttestRequest/AttestResponse exchange, and the
// pluggable aggregation rule that turns a map of per-provider-ID
// AttestationResults into a single pass/fail.
//
// The package only consumes externally supplied Attester/Endorser/Verifier
// implementations; it has no opinion on what evidence or endorsements look
// like beyond "opaque byte bundle". Provider IDs present on only one side
// of a session represent capabilities neither side required and are
// silently ignored, per the original Oak session test fixtures
// (UNMATCHED_ATTESTER_ID / UNMATCHED_VERIFIER_ID).
package attestation
