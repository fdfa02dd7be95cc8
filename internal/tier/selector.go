// Package tier decides how much diligence a job warrants. Everything here is
// a pure function of its inputs so tier decisions are reproducible.
package tier

import (
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

const (
	fullPlaybookAmount = 50_000_000
	standardAmount     = 5_000_000
	lightAmount        = 1_000_000
)

// FundingTier is the baseline tier from the size and stage of the raise.
// When amount and round disagree the deeper tier wins.
func FundingTier(f model.FundingSignals) model.DDTier {
	byAmount := model.TierFastVerify
	switch {
	case f.AmountUSD >= fullPlaybookAmount:
		byAmount = model.TierFullPlaybook
	case f.AmountUSD >= standardAmount:
		byAmount = model.TierStandardDD
	case f.AmountUSD >= lightAmount:
		byAmount = model.TierLightDD
	}
	return model.MaxTier(byAmount, roundTier(f.Round))
}

func roundTier(round string) model.DDTier {
	r := strings.ToLower(strings.TrimSpace(round))
	r = strings.NewReplacer("_", "-", " ", "-").Replace(r)

	switch r {
	case "series-c", "series-d", "series-e", "series-f", "growth", "late", "late-stage", "pre-ipo", "ipo", "buyout":
		return model.TierFullPlaybook
	case "series-a", "series-b", "mid", "mid-stage":
		return model.TierStandardDD
	case "seed", "seed-extension", "angel":
		return model.TierLightDD
	default:
		// pre-seed, grants, unknown
		return model.TierFastVerify
	}
}

// SelectTier picks the diligence tier and computes the risk score.
// The score band may only raise the funding tier, and any hard escalation
// trigger forces FULL_PLAYBOOK regardless of score or funding.
func SelectTier(funding model.FundingSignals, signals []model.RiskSignal) (model.DDTier, model.RiskScore) {
	base := FundingTier(funding)
	overall, breakdown := ComputeRisk(signals)
	band := TierForScore(overall)
	triggers := DetectTriggers(funding, signals)

	selected := model.MaxTier(base, band)
	override := selected > base
	if len(triggers) > 0 && selected != model.TierFullPlaybook {
		selected = model.TierFullPlaybook
		override = true
	}

	copied := make([]model.RiskSignal, len(signals))
	copy(copied, signals)

	return selected, model.RiskScore{
		Overall:            overall,
		Breakdown:          breakdown,
		Signals:            copied,
		EscalationTriggers: triggers,
		FundingTier:        base,
		ScoreTier:          band,
		RecommendedTier:    selected,
		TierOverride:       override,
	}
}
