package synth

import (
	"sort"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/tier"
)

// StopInput is everything stop rules are evaluated over
type StopInput struct {
	Signals []model.RiskSignal                   // Caller and branch signals
	Results map[model.BranchKind]model.BranchResult
	Ledger  model.LedgerSnapshot
}

// EvaluateStopRules returns the triggered stop rules, sorted. A hard
// trigger counts once something asserts it: a signal carrying it, or the
// complete new-domain impersonation pattern. Request flags on their own
// only escalate the tier.
func EvaluateStopRules(in StopInput) []string {
	found := make(map[string]bool)

	// Funding flags are deliberately left out
	for _, trig := range tier.DetectTriggers(model.FundingSignals{}, in.Signals) {
		found[trig] = true
	}

	for _, kind := range model.SortedKinds(in.Results) {
		r := in.Results[kind]
		if r.Status != model.BranchCompleted {
			continue
		}
		for _, rule := range r.StopRules {
			found[rule] = true
		}
		for _, trig := range tier.DetectTriggers(model.FundingSignals{}, r.RiskSignals) {
			found[trig] = true
		}
	}

	for _, c := range in.Ledger.Claims {
		if c.Verdict == model.VerdictContradicted && c.Type == model.ClaimTypeIdentity && !superseded(in.Ledger.Claims, c.ID) {
			found[model.StopContradictedIdentity] = true
			break
		}
	}

	rules := make([]string, 0, len(found))
	for r := range found {
		if r != "" {
			rules = append(rules, r)
		}
	}
	sort.Strings(rules)
	return rules
}

func superseded(claims []model.Claim, id string) bool {
	for _, c := range claims {
		for _, old := range c.Contradictions {
			if old == id {
				return true
			}
		}
	}
	return false
}
