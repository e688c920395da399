package attestation

import (
	"errors"
	"fmt"
)

// Evidence is an opaque TEE quote, owned by the endpoint that produced it.
type Evidence []byte

// Endorsements is an opaque bundle complementing Evidence (certificates,
// transparency log entries).
type Endorsements []byte

// EndorsedEvidence pairs Evidence with its Endorsements, the unit exchanged
// per provider ID in an AttestRequest/AttestResponse.
type EndorsedEvidence struct {
	Evidence     Evidence     `json:"evidence"`
	Endorsements Endorsements `json:"endorsements"`
}

// Status is the outcome of a single Verifier.Verify call.
type Status int

const (
	Success Status = iota
	Failure
)

func (s Status) String() string {
	if s == Success {
		return "Success"
	}
	return "Failure"
}

// AttestationResults is what a Verifier produces from one EndorsedEvidence.
// Extracted carries verifier-specific fields recovered from the evidence;
// the session binder looks up "signing_public_key" here to check a
// session binding.
type AttestationResults struct {
	Status    Status
	Reason    string
	Extracted map[string][]byte
}

// SigningPublicKey returns the "signing_public_key" extracted field, if
// present.
func (r AttestationResults) SigningPublicKey() ([]byte, bool) {
	k, ok := r.Extracted["signing_public_key"]
	return k, ok
}

// Attester produces Evidence for this endpoint, once per session.
type Attester interface {
	Quote() (Evidence, error)
}

// Endorser complements Evidence produced by an Attester with Endorsements.
type Endorser interface {
	Endorse(Evidence) (Endorsements, error)
}

// Verifier checks an EndorsedEvidence bundle and extracts identity fields
// from it.
type Verifier interface {
	Verify(Evidence, Endorsements) (AttestationResults, error)
}

// Type selects which direction(s) of attestation a session requires. Both
// endpoints are configured with the same Type, and the names are fixed from
// the client's point of view: "self" is the client, "peer" is the server,
// whichever Role the local endpoint has.
type Type int

const (
	// Unattested requires no evidence from either side.
	Unattested Type = iota
	// SelfUnidirectional requires the client to attest to the server; the
	// server does not attest back.
	SelfUnidirectional
	// PeerUnidirectional requires the server to attest to the client; the
	// client does not attest back.
	PeerUnidirectional
	// Bidirectional requires both sides to attest to each other.
	Bidirectional
)

func (t Type) String() string {
	switch t {
	case Unattested:
		return "Unattested"
	case SelfUnidirectional:
		return "SelfUnidirectional"
	case PeerUnidirectional:
		return "PeerUnidirectional"
	case Bidirectional:
		return "Bidirectional"
	default:
		return "Unknown"
	}
}

// Role is this endpoint's position in the session.
type Role int

const (
	Client Role = iota
	Server
)

// RequiresSelfAttestation reports whether, for Type t and this Role, the
// local endpoint must produce its own evidence. Exported so SessionConfig
// validation in the root package can check self_attesters/self_endorsers
// coverage without duplicating the Type/Role table.
func (t Type) RequiresSelfAttestation(role Role) bool {
	return requiresSelfAttestation(t, role)
}

// RequiresPeerVerification reports whether, for Type t and this Role, the
// local endpoint must verify evidence received from the peer. Exported for
// the same reason as RequiresSelfAttestation.
func (t Type) RequiresPeerVerification(role Role) bool {
	return requiresPeerVerification(t, role)
}

func requiresSelfAttestation(t Type, role Role) bool {
	switch t {
	case SelfUnidirectional:
		return role == Client
	case PeerUnidirectional:
		return role == Server
	case Bidirectional:
		return true
	default:
		return false
	}
}

func requiresPeerVerification(t Type, role Role) bool {
	switch t {
	case SelfUnidirectional:
		return role == Server
	case PeerUnidirectional:
		return role == Client
	case Bidirectional:
		return true
	default:
		return false
	}
}

// CombinedResults is the per-side outcome exposed once a provider
// completes: a single pass/fail plus the verification results this side
// computed over the peer's evidence, keyed by provider ID, for the
// session binder to cross-reference against session bindings.
type CombinedResults struct {
	OK     bool
	Reason string
	Peer   map[string]AttestationResults
}

// Aggregator turns a map of matched-provider-ID verification results into
// a single pass/fail, per Type and Role.
type Aggregator interface {
	Aggregate(t Type, role Role, results map[string]AttestationResults) error
}

// DefaultAttestationAggregator implements the rules named in the
// specification: any matched ID returning Failure fails the whole
// aggregation; otherwise the side must have at least one matched Success
// if it is required to verify the peer at all.
type DefaultAttestationAggregator struct{}

func (DefaultAttestationAggregator) Aggregate(t Type, role Role, results map[string]AttestationResults) error {
	anySuccess := false
	for id, r := range results {
		if r.Status == Failure {
			return fmt.Errorf("attestation: provider %q failed: %s", id, r.Reason)
		}
		anySuccess = true
	}

	if requiresPeerVerification(t, role) && !anySuccess {
		return errors.New("attestation: no matched verifier succeeded")
	}

	return nil
}
