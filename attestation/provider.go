package attestation

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/attestsession/sessionerr"
)

// Config configures one side of an attestation exchange. Aggregator may be
// nil, in which case DefaultAttestationAggregator is used.
type Config struct {
	Type          Type
	SelfAttesters map[string]Attester
	SelfEndorsers map[string]Endorser
	PeerVerifiers map[string]Verifier
	Aggregator    Aggregator
}

func (c Config) aggregator() Aggregator {
	if c.Aggregator != nil {
		return c.Aggregator
	}
	return DefaultAttestationAggregator{}
}

type phase int

const (
	collecting phase = iota
	sentOwn
	receivedPeer
	complete
)

// collectOwnEvidence runs every configured self-attester and its matching
// endorser, producing the EndorsedEvidence map to send to the peer. An ID
// present in SelfAttesters without a matching endorser is an error.
func collectOwnEvidence(cfg Config) (map[string]EndorsedEvidence, error) {
	out := make(map[string]EndorsedEvidence, len(cfg.SelfAttesters))
	for id, attester := range cfg.SelfAttesters {
		endorser, ok := cfg.SelfEndorsers[id]
		if !ok {
			return nil, fmt.Errorf("attestation: provider %q has an attester but no endorser", id)
		}
		evidence, err := attester.Quote()
		if err != nil {
			return nil, fmt.Errorf("attestation: provider %q quote failed: %w", id, err)
		}
		endorsements, err := endorser.Endorse(evidence)
		if err != nil {
			return nil, fmt.Errorf("attestation: provider %q endorse failed: %w", id, err)
		}
		out[id] = EndorsedEvidence{Evidence: evidence, Endorsements: endorsements}
	}
	return out, nil
}

// verifyPeerEvidence runs each configured peer-verifier against the
// matching entry in peerEvidence. IDs present on only one side are
// silently skipped.
func verifyPeerEvidence(cfg Config, peerEvidence map[string]EndorsedEvidence) map[string]AttestationResults {
	out := make(map[string]AttestationResults, len(cfg.PeerVerifiers))
	for id, verifier := range cfg.PeerVerifiers {
		ev, ok := peerEvidence[id]
		if !ok {
			continue
		}
		result, err := verifier.Verify(ev.Evidence, ev.Endorsements)
		if err != nil {
			out[id] = AttestationResults{Status: Failure, Reason: err.Error()}
			continue
		}
		out[id] = result
	}
	return out
}

// ClientAttestationProvider drives the client half of the attestation
// exchange: it emits AttestRequest first, then processes AttestResponse.
type ClientAttestationProvider struct {
	cfg         Config
	phase       phase
	peerResults map[string]AttestationResults
	combined    *CombinedResults
	logger      *logrus.Entry
}

// NewClientAttestationProvider constructs a client-side provider. For
// Type Unattested it completes immediately with no messages exchanged.
func NewClientAttestationProvider(cfg Config) *ClientAttestationProvider {
	p := &ClientAttestationProvider{
		cfg: cfg,
		logger: logrus.WithFields(logrus.Fields{
			"package":        "attestation",
			"role":           "client",
			"type":           cfg.Type.String(),
			"correlation_id": uuid.New().String(),
		}),
	}
	if cfg.Type == Unattested {
		p.phase = complete
		p.combined = &CombinedResults{OK: true, Peer: map[string]AttestationResults{}}
	}
	return p
}

func (p *ClientAttestationProvider) IsComplete() bool { return p.phase == complete }

// GetOutgoingMessage returns the AttestRequest to send, or nil if there is
// nothing to send right now (already sent, or Unattested).
func (p *ClientAttestationProvider) GetOutgoingMessage() (*AttestRequest, error) {
	if p.phase != collecting {
		return nil, nil
	}

	evidence, err := collectOwnEvidence(p.cfg)
	if err != nil {
		p.logger.WithError(err).Error("failed to collect own evidence")
		return nil, sessionerr.NewAttestationFailure("", "failed to collect own evidence", err)
	}

	p.phase = sentOwn
	return &AttestRequest{EndorsedEvidence: evidence}, nil
}

// PutIncomingMessage processes the server's AttestResponse, verifies
// matched peer evidence, and runs the aggregator.
func (p *ClientAttestationProvider) PutIncomingMessage(resp *AttestResponse) error {
	if p.phase != sentOwn {
		return sessionerr.ErrWrongState
	}

	p.peerResults = verifyPeerEvidence(p.cfg, resp.EndorsedEvidence)
	p.phase = receivedPeer

	if err := p.cfg.aggregator().Aggregate(p.cfg.Type, Client, p.peerResults); err != nil {
		p.combined = &CombinedResults{OK: false, Reason: err.Error(), Peer: p.peerResults}
		p.phase = complete
		p.logger.WithError(err).Warn("attestation aggregation failed")
		return sessionerr.NewAttestationFailure("", "aggregation failed", err)
	}

	p.combined = &CombinedResults{OK: true, Peer: p.peerResults}
	p.phase = complete
	return nil
}

// TakeResult returns the combined attestation results. Valid only once
// IsComplete reports true.
func (p *ClientAttestationProvider) TakeResult() (*CombinedResults, error) {
	if p.phase != complete {
		return nil, sessionerr.ErrWrongState
	}
	return p.combined, nil
}

// ServerAttestationProvider drives the server half: it first processes
// the client's AttestRequest, then emits AttestResponse.
type ServerAttestationProvider struct {
	cfg         Config
	phase       phase
	peerResults map[string]AttestationResults
	ownEvidence map[string]EndorsedEvidence
	combined    *CombinedResults
	logger      *logrus.Entry
}

// NewServerAttestationProvider constructs a server-side provider. For
// Type Unattested it completes immediately with no messages exchanged.
func NewServerAttestationProvider(cfg Config) *ServerAttestationProvider {
	p := &ServerAttestationProvider{
		cfg: cfg,
		logger: logrus.WithFields(logrus.Fields{
			"package":        "attestation",
			"role":           "server",
			"type":           cfg.Type.String(),
			"correlation_id": uuid.New().String(),
		}),
	}
	if cfg.Type == Unattested {
		p.phase = complete
		p.combined = &CombinedResults{OK: true, Peer: map[string]AttestationResults{}}
	}
	return p
}

func (p *ServerAttestationProvider) IsComplete() bool { return p.phase == complete }

// PutIncomingMessage processes the client's AttestRequest: it verifies
// matched peer evidence and collects this side's own evidence, both ahead
// of responding.
func (p *ServerAttestationProvider) PutIncomingMessage(req *AttestRequest) error {
	if p.phase != collecting {
		return sessionerr.ErrWrongState
	}

	p.peerResults = verifyPeerEvidence(p.cfg, req.EndorsedEvidence)

	evidence, err := collectOwnEvidence(p.cfg)
	if err != nil {
		p.logger.WithError(err).Error("failed to collect own evidence")
		return sessionerr.NewAttestationFailure("", "failed to collect own evidence", err)
	}
	p.ownEvidence = evidence
	p.phase = receivedPeer

	return nil
}

// GetOutgoingMessage returns the AttestResponse to send and runs the
// aggregator, completing the provider.
func (p *ServerAttestationProvider) GetOutgoingMessage() (*AttestResponse, error) {
	if p.phase != receivedPeer {
		return nil, nil
	}

	resp := &AttestResponse{EndorsedEvidence: p.ownEvidence}
	p.phase = sentOwn

	if err := p.cfg.aggregator().Aggregate(p.cfg.Type, Server, p.peerResults); err != nil {
		p.combined = &CombinedResults{OK: false, Reason: err.Error(), Peer: p.peerResults}
		p.phase = complete
		p.logger.WithError(err).Warn("attestation aggregation failed")
		return resp, sessionerr.NewAttestationFailure("", "aggregation failed", err)
	}

	p.combined = &CombinedResults{OK: true, Peer: p.peerResults}
	p.phase = complete
	return resp, nil
}

// TakeResult returns the combined attestation results. Valid only once
// IsComplete reports true.
func (p *ServerAttestationProvider) TakeResult() (*CombinedResults, error) {
	if p.phase != complete {
		return nil, sessionerr.ErrWrongState
	}
	return p.combined, nil
}
