package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

// ErrInvalidRequest is returned before anything is scheduled when a request
// cannot be investigated
var ErrInvalidRequest = errors.New("invalid diligence request")

// Request is the input of a full diligence run
type Request struct {
	Entity            model.Entity            `json:"entity" yaml:"entity"`
	KnownClaims       []model.Claim           `json:"known_claims,omitempty" yaml:"known_claims,omitempty"`
	Funding           model.FundingSignals    `json:"funding,omitempty" yaml:"funding,omitempty"`
	Signals           []model.RiskSignal      `json:"signals,omitempty" yaml:"signals,omitempty"`
	Complexity        model.ComplexitySignals `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	Playbook          model.PlaybookSignals   `json:"playbook,omitempty" yaml:"playbook,omitempty"`
	FundingRequest    bool                    `json:"funding_request,omitempty" yaml:"funding_request,omitempty"`
	QuickVerification bool                    `json:"quick_verification,omitempty" yaml:"quick_verification,omitempty"`
}

// QuickRequest is the input of a stop-rules-only check
type QuickRequest struct {
	Entity  model.Entity         `json:"entity" yaml:"entity"`
	Funding model.FundingSignals `json:"funding,omitempty" yaml:"funding,omitempty"`
	Signals []model.RiskSignal   `json:"signals,omitempty" yaml:"signals,omitempty"`
}

var knownCategories = func() map[model.RiskCategory]bool {
	m := make(map[model.RiskCategory]bool, len(model.RiskCategories))
	for _, c := range model.RiskCategories {
		m[c] = true
	}
	return m
}()

// Validate rejects requests that cannot be investigated
func (r Request) Validate() error {
	if err := validateCommon(r.Entity, r.Funding, r.Signals); err != nil {
		return err
	}
	for i, c := range r.KnownClaims {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("%w: known claim %d has no text", ErrInvalidRequest, i+1)
		}
	}
	if r.Complexity.TeamSize < 0 {
		return fmt.Errorf("%w: negative team size", ErrInvalidRequest)
	}
	return nil
}

// Validate rejects quick checks that cannot be evaluated
func (r QuickRequest) Validate() error {
	return validateCommon(r.Entity, r.Funding, r.Signals)
}

func validateCommon(entity model.Entity, funding model.FundingSignals, signals []model.RiskSignal) error {
	if err := entity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if funding.AmountUSD < 0 {
		return fmt.Errorf("%w: negative funding amount", ErrInvalidRequest)
	}
	for _, s := range signals {
		if s.Severity < 0 || s.Severity > 100 {
			return fmt.Errorf("%w: signal %q severity %d outside 0-100", ErrInvalidRequest, s.Name, s.Severity)
		}
		if !knownCategories[s.Category] {
			return fmt.Errorf("%w: signal %q has unknown category %q", ErrInvalidRequest, s.Name, s.Category)
		}
	}
	return nil
}
