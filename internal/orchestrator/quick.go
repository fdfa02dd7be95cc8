package orchestrator

import (
	"context"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/synth"
	"github.com/ppiankov/diligentia/internal/tier"
)

// RunQuickCheck evaluates stop rules and escalation triggers over the
// caller's signals without running any branch. It passes only when no stop
// rule fires and the risk score stays below the FULL_PLAYBOOK band.
func (o *Orchestrator) RunQuickCheck(ctx context.Context, req QuickRequest) (model.QuickResult, error) {
	if err := req.Validate(); err != nil {
		return model.QuickResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.QuickResult{}, err
	}

	_, risk := tier.SelectTier(req.Funding, req.Signals)
	stops := synth.EvaluateStopRules(synth.StopInput{Signals: req.Signals})

	res := model.QuickResult{
		Entity:         req.Entity,
		OverallRisk:    quickRisk(risk.Overall),
		CriticalIssues: stops,
		Risk:           risk,
	}
	if len(stops) > 0 {
		res.OverallRisk = model.RiskCritical
	}
	res.Pass = len(stops) == 0 && res.OverallRisk.Rank() < model.RiskHigh.Rank()

	o.logger.Info().
		Str("entity", req.Entity.Name).
		Bool("pass", res.Pass).
		Str("risk", string(res.OverallRisk)).
		Strs("critical", stops).
		Msg("quick check")
	return res, nil
}

// quickRisk bands the risk score the same way tier selection does
func quickRisk(overall int) model.RiskLevel {
	switch tier.TierForScore(overall) {
	case model.TierFullPlaybook:
		return model.RiskHigh
	case model.TierStandardDD:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
