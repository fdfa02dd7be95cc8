package synth

import (
	"fmt"
	"sort"

	"github.com/ppiankov/diligentia/internal/model"
)

// Synthesis thresholds
const (
	coreWeight          = 1.5
	otherWeight         = 1.0
	unresolvedThreshold = 3
	riskScoreHighFloor  = 71
	minCompleted        = 2
	minCompletedRatio   = 0.5
	strongBuyConfidence = 0.8
)

// Input is everything synthesis reads
type Input struct {
	Results        map[model.BranchKind]model.BranchResult
	Contradictions []model.Contradiction
	Risk           model.RiskScore
	StopRules      []string
	Integrity      model.Integrity // Ledger integrity; empty means not assessed
}

// Synthesize produces the terminal verdict. It is total: any input,
// including an empty or all-failed result set, yields a Synthesis.
func Synthesize(in Input) model.Synthesis {
	total := len(in.Results)
	completed := 0
	var weighted, weights float64
	for _, kind := range model.SortedKinds(in.Results) {
		r := in.Results[kind]
		if r.Status != model.BranchCompleted {
			continue
		}
		completed++
		w := otherWeight
		if r.Class == model.ClassCore {
			w = coreWeight
		}
		weighted += w * r.Confidence
		weights += w
	}

	s := model.Synthesis{
		StopRulesTriggered: uniqueSorted(in.StopRules),
		Discrepancies:      append([]model.Contradiction{}, in.Contradictions...),
		CompletedBranches:  completed,
		TotalBranches:      total,
	}

	if completed == 0 {
		s.OverallRisk = model.RiskCritical
		s.Verdict = model.RecommendInsufficientData
		s.ShouldDisengage = true
		if total == 0 {
			s.Rationale = append(s.Rationale, "no branches ran")
		} else {
			s.Rationale = append(s.Rationale, fmt.Sprintf("all %d branches failed", total))
		}
		if len(s.StopRulesTriggered) > 0 {
			s.Rationale = append(s.Rationale, fmt.Sprintf("stop rules triggered: %v", s.StopRulesTriggered))
		}
		s.Recommendation = recommendation(s)
		return s
	}

	s.Confidence = weighted / weights
	s.OverallRisk = riskBand(s.Confidence)
	s.Rationale = append(s.Rationale, fmt.Sprintf("weighted confidence %.2f over %d of %d branches -> %s", s.Confidence, completed, total, s.OverallRisk))

	if n := Unresolved(in.Contradictions); n >= unresolvedThreshold {
		s.OverallRisk = s.OverallRisk.Worse()
		s.Rationale = append(s.Rationale, fmt.Sprintf("%d unresolved contradictions -> %s", n, s.OverallRisk))
	}
	if in.Integrity == model.IntegrityLow {
		s.OverallRisk = s.OverallRisk.Worse()
		s.Rationale = append(s.Rationale, fmt.Sprintf("low claim integrity -> %s", s.OverallRisk))
	}
	if in.Risk.Overall >= riskScoreHighFloor && s.OverallRisk.Rank() < model.RiskHigh.Rank() {
		s.OverallRisk = s.OverallRisk.AtLeast(model.RiskHigh)
		s.Rationale = append(s.Rationale, fmt.Sprintf("risk score %d -> at least high", in.Risk.Overall))
	}
	if len(s.StopRulesTriggered) > 0 {
		s.OverallRisk = model.RiskCritical
		s.ShouldDisengage = true
		s.Rationale = append(s.Rationale, fmt.Sprintf("stop rules triggered: %v", s.StopRulesTriggered))
	}

	s.Verdict = verdict(s)
	s.Recommendation = recommendation(s)
	return s
}

// riskBand maps aggregate confidence to a risk level
func riskBand(confidence float64) model.RiskLevel {
	switch {
	case confidence >= 0.7:
		return model.RiskLow
	case confidence >= 0.5:
		return model.RiskMedium
	case confidence >= 0.3:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

// verdict is monotone in risk once enough branches completed
func verdict(s model.Synthesis) model.Recommendation {
	// A micro job may schedule a single branch; it can still reach a verdict
	need := min(minCompleted, s.TotalBranches)
	if s.CompletedBranches < need || float64(s.CompletedBranches)/float64(s.TotalBranches) < minCompletedRatio {
		return model.RecommendInsufficientData
	}
	switch s.OverallRisk {
	case model.RiskLow:
		if s.Confidence >= strongBuyConfidence {
			return model.RecommendStrongBuy
		}
		return model.RecommendBuy
	case model.RiskMedium:
		return model.RecommendHold
	default:
		return model.RecommendPass
	}
}

func recommendation(s model.Synthesis) string {
	switch {
	case s.ShouldDisengage && len(s.StopRulesTriggered) > 0:
		return "Disengage: hard stop conditions were found and must be resolved before any commitment."
	case s.ShouldDisengage:
		return "Disengage: the investigation could not gather enough evidence to support a decision."
	case s.Verdict == model.RecommendInsufficientData:
		return "Insufficient data: too few research branches completed; rerun or extend diligence."
	case s.Verdict == model.RecommendStrongBuy:
		return "Proceed: evidence is consistent and well sourced."
	case s.Verdict == model.RecommendBuy:
		return "Proceed with standard safeguards."
	case s.Verdict == model.RecommendHold:
		return "Hold: resolve the open questions before committing."
	default:
		return "Pass: the risk profile does not support proceeding."
	}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := []string{}
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
