package tier

import (
	"math"

	"github.com/ppiankov/diligentia/internal/model"
)

// CategoryWeights are the fixed weights of the overall risk score. They sum to 1.
var CategoryWeights = map[model.RiskCategory]float64{
	model.RiskIdentityProvenance:   0.20,
	model.RiskClaimsVerification:   0.20,
	model.RiskTransactionIntegrity: 0.20,
	model.RiskSectorRegulatory:     0.15,
	model.RiskEntityAuthenticity:   0.15,
	model.RiskDocumentConsistency:  0.10,
}

// ComputeRisk scores a set of signals. A category scores the highest
// severity reported in it; overall = sum(weight * category score).
// Signals with an unknown category count toward document consistency.
func ComputeRisk(signals []model.RiskSignal) (int, map[model.RiskCategory]int) {
	breakdown := make(map[model.RiskCategory]int, len(model.RiskCategories))
	for _, c := range model.RiskCategories {
		breakdown[c] = 0
	}

	for _, s := range signals {
		category := s.Category
		if _, ok := CategoryWeights[category]; !ok {
			category = model.RiskDocumentConsistency
		}
		severity := clampInt(s.Severity, 0, 100)
		if severity > breakdown[category] {
			breakdown[category] = severity
		}
	}

	var overall float64
	for c, w := range CategoryWeights {
		overall += w * float64(breakdown[c])
	}

	return clampInt(int(math.Round(overall)), 0, 100), breakdown
}

// TierForScore maps an overall score to its band
func TierForScore(overall int) model.DDTier {
	switch {
	case overall >= 71:
		return model.TierFullPlaybook
	case overall >= 46:
		return model.TierStandardDD
	case overall >= 21:
		return model.TierLightDD
	default:
		return model.TierFastVerify
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
