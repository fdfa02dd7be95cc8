package synth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/tier"
)

func completed(kind model.BranchKind, class model.BranchClass, confidence float64, facts map[string]model.FactValue) model.BranchResult {
	return model.BranchResult{
		Kind:       kind,
		Class:      class,
		Status:     model.BranchCompleted,
		Confidence: confidence,
		Facts:      facts,
	}
}

func failed(kind model.BranchKind, class model.BranchClass) model.BranchResult {
	return model.BranchResult{Kind: kind, Class: class, Status: model.BranchFailed, Error: "boom"}
}

func categorical(v string, r model.Reliability) model.FactValue {
	return model.FactValue{Value: v, Kind: model.FactCategorical, Reliability: r}
}

func numeric(n float64, r model.Reliability) model.FactValue {
	return model.FactValue{Number: n, Kind: model.FactNumeric, Reliability: r}
}

func TestCrossCheck_FoundingYearConflictUnresolved(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: completed(model.BranchEntityProfile, model.ClassCore, 0.6,
			map[string]model.FactValue{"founded_year": categorical("2019", model.ReliabilityReliable)}),
		model.BranchFundingHistory: completed(model.BranchFundingHistory, model.ClassCore, 0.6,
			map[string]model.FactValue{"founded_year": categorical("2021", model.ReliabilityReliable)}),
	}

	got := CrossCheck(results)

	want := []model.Contradiction{{
		Field:         "founded_year",
		SourceBranchA: model.BranchEntityProfile,
		ValueA:        "2019",
		SourceBranchB: model.BranchFundingHistory,
		ValueB:        "2021",
		Resolution:    model.Unresolved,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CrossCheck() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, Unresolved(got))
}

func TestCrossCheck_ReliabilityResolves(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: completed(model.BranchEntityProfile, model.ClassCore, 0.6,
			map[string]model.FactValue{"jurisdiction": categorical("Delaware", model.ReliabilitySecondary)}),
		model.BranchRegistryLookup: completed(model.BranchRegistryLookup, model.ClassMicro, 0.6,
			map[string]model.FactValue{"jurisdiction": categorical("Cayman Islands", model.ReliabilityAuthoritative)}),
	}

	got := CrossCheck(results)
	require.Len(t, got, 1)
	assert.Equal(t, model.BranchEntityProfile, got[0].SourceBranchA)
	assert.Equal(t, model.ResolvedToB, got[0].Resolution)
	assert.Empty(t, ContradictionSignals(got))
}

func TestCrossCheck_NormalizedEquality(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: completed(model.BranchEntityProfile, model.ClassCore, 0.6,
			map[string]model.FactValue{"headquarters": categorical("Berlin, DE", model.ReliabilityReliable)}),
		model.BranchDomainPresence: completed(model.BranchDomainPresence, model.ClassMicro, 0.6,
			map[string]model.FactValue{"headquarters": categorical("  berlin de", model.ReliabilitySecondary)}),
	}
	assert.Empty(t, CrossCheck(results))
}

func TestCrossCheck_NumericTolerance(t *testing.T) {
	tests := []struct {
		name   string
		a, b   float64
		differ bool
	}{
		{"equal", 100, 100, false},
		{"within tolerance", 100, 91, false},
		{"boundary", 100, 90, false},
		{"outside tolerance", 100, 89, true},
		{"order of magnitude", 2_000_000, 20_000_000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := map[model.BranchKind]model.BranchResult{
				model.BranchTeam: completed(model.BranchTeam, model.ClassCore, 0.5,
					map[string]model.FactValue{"employee_count": numeric(tt.a, model.ReliabilityReliable)}),
				model.BranchCustomerTraction: completed(model.BranchCustomerTraction, model.ClassConditional, 0.5,
					map[string]model.FactValue{"employee_count": numeric(tt.b, model.ReliabilityReliable)}),
			}
			got := CrossCheck(results)
			assert.Equal(t, tt.differ, len(got) == 1, "contradictions: %+v", got)
		})
	}
}

func TestCrossCheck_MultiValuedIsBothValid(t *testing.T) {
	multi := func(v string) model.FactValue {
		return model.FactValue{Value: v, Kind: model.FactMulti, Reliability: model.ReliabilityReliable}
	}
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: completed(model.BranchEntityProfile, model.ClassCore, 0.6,
			map[string]model.FactValue{"headquarters": multi("London")}),
		model.BranchDomainPresence: completed(model.BranchDomainPresence, model.ClassMicro, 0.6,
			map[string]model.FactValue{"headquarters": multi("New York")}),
	}

	got := CrossCheck(results)
	require.Len(t, got, 1)
	assert.Equal(t, model.BothValid, got[0].Resolution)
	assert.Zero(t, Unresolved(got))
}

func TestCrossCheck_IgnoresIncompleteBranches(t *testing.T) {
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: completed(model.BranchEntityProfile, model.ClassCore, 0.6,
			map[string]model.FactValue{"founded_year": categorical("2019", model.ReliabilityReliable)}),
		model.BranchFundingHistory: {
			Kind:   model.BranchFundingHistory,
			Status: model.BranchFailed,
			Facts:  map[string]model.FactValue{"founded_year": categorical("2021", model.ReliabilityReliable)},
		},
	}
	assert.Empty(t, CrossCheck(results))
}

func TestContradictionSignals(t *testing.T) {
	contradictions := []model.Contradiction{
		{Field: "ceo", SourceBranchA: model.BranchTeam, ValueA: "Jane Doe", SourceBranchB: model.BranchTeamBackground, ValueB: "John Roe", Resolution: model.Unresolved},
		{Field: "founded_year", SourceBranchA: model.BranchEntityProfile, ValueA: "2019", SourceBranchB: model.BranchFundingHistory, ValueB: "2021", Resolution: model.Unresolved},
		{Field: "headquarters", Resolution: model.BothValid},
	}

	signals := ContradictionSignals(contradictions)
	require.Len(t, signals, 2)

	assert.Equal(t, tier.TriggerIdentityMismatch, signals[0].Trigger)
	assert.Equal(t, model.RiskIdentityProvenance, signals[0].Category)
	assert.Equal(t, "team=Jane Doe vs team_background=John Roe", signals[0].Detail)

	assert.Empty(t, signals[1].Trigger)
	assert.Equal(t, model.RiskDocumentConsistency, signals[1].Category)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "acme robotics inc", Normalize("  ACME Robotics, Inc. "))
	assert.Equal(t, "", Normalize("--"))
}
