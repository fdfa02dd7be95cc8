package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/tier"
)

func coreResults(confidence float64) map[model.BranchKind]model.BranchResult {
	results := make(map[model.BranchKind]model.BranchResult)
	for _, kind := range []model.BranchKind{model.BranchEntityProfile, model.BranchTeam, model.BranchFundingHistory, model.BranchAdverseMedia} {
		results[kind] = completed(kind, model.ClassCore, confidence, nil)
	}
	return results
}

func TestSynthesize_NoBranches(t *testing.T) {
	s := Synthesize(Input{})

	assert.Equal(t, model.RiskCritical, s.OverallRisk)
	assert.Equal(t, model.RecommendInsufficientData, s.Verdict)
	assert.True(t, s.ShouldDisengage)
	assert.NotEmpty(t, s.Recommendation)
	assert.NotNil(t, s.StopRulesTriggered)
}

func TestSynthesize_AllBranchesFailed(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: failed(model.BranchEntityProfile, model.ClassCore),
		model.BranchTeam:          failed(model.BranchTeam, model.ClassCore),
	}

	s := Synthesize(Input{Results: results})

	assert.Equal(t, model.RiskCritical, s.OverallRisk)
	assert.Equal(t, model.RecommendInsufficientData, s.Verdict)
	assert.True(t, s.ShouldDisengage)
	assert.Equal(t, 0, s.CompletedBranches)
	assert.Equal(t, 2, s.TotalBranches)
}

func TestSynthesize_Bands(t *testing.T) {
	tests := []struct {
		confidence float64
		risk       model.RiskLevel
		verdict    model.Recommendation
	}{
		{0.9, model.RiskLow, model.RecommendStrongBuy},
		{0.75, model.RiskLow, model.RecommendBuy},
		{0.6, model.RiskMedium, model.RecommendHold},
		{0.4, model.RiskHigh, model.RecommendPass},
		{0.1, model.RiskCritical, model.RecommendPass},
	}
	for _, tt := range tests {
		t.Run(string(tt.risk), func(t *testing.T) {
			s := Synthesize(Input{Results: coreResults(tt.confidence)})
			assert.Equal(t, tt.risk, s.OverallRisk)
			assert.Equal(t, tt.verdict, s.Verdict)
			assert.False(t, s.ShouldDisengage)
			assert.InDelta(t, tt.confidence, s.Confidence, 1e-9)
		})
	}
}

func TestSynthesize_CoreWeighsMore(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: completed(model.BranchEntityProfile, model.ClassCore, 0.8, nil),
		model.BranchIPPatents:     completed(model.BranchIPPatents, model.ClassConditional, 0.3, nil),
	}
	s := Synthesize(Input{Results: results})
	// (1.5*0.8 + 0.3) / 2.5
	assert.InDelta(t, 0.6, s.Confidence, 1e-9)
}

func TestSynthesize_TooFewCompleted(t *testing.T) {
	results := coreResults(0.9)
	for _, kind := range []model.BranchKind{model.BranchTeam, model.BranchFundingHistory, model.BranchAdverseMedia} {
		results[kind] = failed(kind, model.ClassCore)
	}

	s := Synthesize(Input{Results: results})
	assert.Equal(t, model.RiskLow, s.OverallRisk)
	assert.Equal(t, model.RecommendInsufficientData, s.Verdict)
	assert.False(t, s.ShouldDisengage)
}

func TestSynthesize_SingleScheduledBranchReachesVerdict(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchRegistryLookup: completed(model.BranchRegistryLookup, model.ClassMicro, 0.9, nil),
	}

	s := Synthesize(Input{Results: results})
	assert.Equal(t, 1, s.TotalBranches)
	assert.Equal(t, model.RiskLow, s.OverallRisk)
	assert.Equal(t, model.RecommendStrongBuy, s.Verdict)

	results[model.BranchDomainPresence] = failed(model.BranchDomainPresence, model.ClassMicro)
	s = Synthesize(Input{Results: results})
	assert.Equal(t, model.RecommendInsufficientData, s.Verdict, "one of two completed is still too few")
}

func TestSynthesize_UnresolvedContradictionsWorsen(t *testing.T) {
	unresolved := model.Contradiction{Field: "founded_year", Resolution: model.Unresolved}

	two := Synthesize(Input{Results: coreResults(0.75), Contradictions: []model.Contradiction{unresolved, unresolved}})
	assert.Equal(t, model.RiskLow, two.OverallRisk)

	three := Synthesize(Input{Results: coreResults(0.75), Contradictions: []model.Contradiction{unresolved, unresolved, unresolved}})
	assert.Equal(t, model.RiskMedium, three.OverallRisk)
	assert.Equal(t, model.RecommendHold, three.Verdict)
	assert.Len(t, three.Discrepancies, 3)
}

func TestSynthesize_LowIntegrityWorsens(t *testing.T) {
	s := Synthesize(Input{Results: coreResults(0.6), Integrity: model.IntegrityLow})
	assert.Equal(t, model.RiskHigh, s.OverallRisk)
	assert.Equal(t, model.RecommendPass, s.Verdict)
}

func TestSynthesize_HighRiskScoreFloor(t *testing.T) {
	s := Synthesize(Input{Results: coreResults(0.9), Risk: model.RiskScore{Overall: 75}})
	assert.Equal(t, model.RiskHigh, s.OverallRisk)
	assert.Equal(t, model.RecommendPass, s.Verdict)
}

// A confident, consistent picture with a caller-asserted BEC pattern must
// still disengage.
func TestSynthesize_StopRuleOverridesConfidence(t *testing.T) {
	results := coreResults(0.95)
	stops := EvaluateStopRules(StopInput{
		Signals: []model.RiskSignal{{
			Category: model.RiskTransactionIntegrity,
			Name:     "urgent_wire_change",
			Severity: 90,
			Trigger:  tier.TriggerBusinessEmailCompromise,
		}},
		Results: results,
	})
	require.Equal(t, []string{tier.TriggerBusinessEmailCompromise}, stops)

	s := Synthesize(Input{Results: results, StopRules: stops})

	assert.Equal(t, model.RiskCritical, s.OverallRisk)
	assert.True(t, s.ShouldDisengage)
	assert.Equal(t, model.RecommendPass, s.Verdict)
	assert.Equal(t, []string{tier.TriggerBusinessEmailCompromise}, s.StopRulesTriggered)
	assert.Contains(t, s.Recommendation, "Disengage")
}

func TestSynthesize_DeduplicatesStopRules(t *testing.T) {
	s := Synthesize(Input{Results: coreResults(0.9), StopRules: []string{"b", "a", "b", ""}})
	assert.Equal(t, []string{"a", "b"}, s.StopRulesTriggered)
}

func TestSynthesize_MonotoneInRisk(t *testing.T) {
	rank := map[model.Recommendation]int{
		model.RecommendStrongBuy: 0,
		model.RecommendBuy:       1,
		model.RecommendHold:      2,
		model.RecommendPass:      3,
	}
	prevRisk, prevVerdict := -1, -1
	for _, c := range []float64{0.95, 0.8, 0.7, 0.55, 0.45, 0.2} {
		s := Synthesize(Input{Results: coreResults(c)})
		assert.GreaterOrEqual(t, s.OverallRisk.Rank(), prevRisk)
		assert.GreaterOrEqual(t, rank[s.Verdict], prevVerdict)
		prevRisk, prevVerdict = s.OverallRisk.Rank(), rank[s.Verdict]
	}
}
