package tier

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/diligentia/internal/model"
)

func TestFundingTier(t *testing.T) {
	tests := []struct {
		name    string
		funding model.FundingSignals
		want    model.DDTier
	}{
		{"unknown", model.FundingSignals{}, model.TierFastVerify},
		{"pre-seed small", model.FundingSignals{AmountUSD: 500_000, Round: "pre-seed"}, model.TierFastVerify},
		{"seed by round", model.FundingSignals{Round: "Seed"}, model.TierLightDD},
		{"2M", model.FundingSignals{AmountUSD: 2_000_000}, model.TierLightDD},
		{"5M boundary", model.FundingSignals{AmountUSD: 5_000_000}, model.TierStandardDD},
		{"series A", model.FundingSignals{AmountUSD: 1_000, Round: "Series A"}, model.TierStandardDD},
		{"50M boundary", model.FundingSignals{AmountUSD: 50_000_000}, model.TierFullPlaybook},
		{"late stage small amount", model.FundingSignals{AmountUSD: 3_000_000, Round: "series_c"}, model.TierFullPlaybook},
		{"large seed", model.FundingSignals{AmountUSD: 60_000_000, Round: "seed"}, model.TierFullPlaybook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FundingTier(tt.funding); got != tt.want {
				t.Errorf("FundingTier() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTierForScore_Bands(t *testing.T) {
	tests := []struct {
		score int
		want  model.DDTier
	}{
		{0, model.TierFastVerify},
		{20, model.TierFastVerify},
		{21, model.TierLightDD},
		{45, model.TierLightDD},
		{46, model.TierStandardDD},
		{70, model.TierStandardDD},
		{71, model.TierFullPlaybook},
		{100, model.TierFullPlaybook},
	}
	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.want {
			t.Errorf("TierForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestComputeRisk_WeightedSum(t *testing.T) {
	signals := []model.RiskSignal{
		{Category: model.RiskIdentityProvenance, Name: "a", Severity: 100},
		{Category: model.RiskIdentityProvenance, Name: "b", Severity: 40}, // max wins
		{Category: model.RiskSectorRegulatory, Name: "c", Severity: 60},
		{Category: "unknown", Name: "d", Severity: 150}, // clamped, counted as document consistency
	}

	overall, breakdown := ComputeRisk(signals)

	// 0.20*100 + 0.15*60 + 0.10*100 = 39
	if overall != 39 {
		t.Errorf("expected overall 39, got %d", overall)
	}
	if breakdown[model.RiskIdentityProvenance] != 100 {
		t.Errorf("expected identity score 100, got %d", breakdown[model.RiskIdentityProvenance])
	}
	if breakdown[model.RiskDocumentConsistency] != 100 {
		t.Errorf("expected document consistency 100, got %d", breakdown[model.RiskDocumentConsistency])
	}
	if len(breakdown) != len(model.RiskCategories) {
		t.Errorf("expected every category in breakdown, got %d", len(breakdown))
	}
}

func TestComputeRisk_Empty(t *testing.T) {
	overall, _ := ComputeRisk(nil)
	if overall != 0 {
		t.Errorf("expected 0 for no signals, got %d", overall)
	}
}

func TestSelectTier_SmallRaiseNoSignals(t *testing.T) {
	selected, risk := SelectTier(model.FundingSignals{AmountUSD: 2_000_000}, nil)

	if selected != model.TierLightDD {
		t.Errorf("expected LIGHT_DD, got %s", selected)
	}
	if risk.TierOverride {
		t.Error("expected no tier override")
	}
	if len(risk.EscalationTriggers) != 0 {
		t.Errorf("expected no triggers, got %v", risk.EscalationTriggers)
	}
}

func TestSelectTier_WireInstructionsForceFullPlaybook(t *testing.T) {
	selected, risk := SelectTier(model.FundingSignals{AmountUSD: 2_000_000, WireInstructionsProvided: true}, nil)

	if selected != model.TierFullPlaybook {
		t.Errorf("expected FULL_PLAYBOOK, got %s", selected)
	}
	if diff := cmp.Diff([]string{TriggerPaymentAnomaly}, risk.EscalationTriggers); diff != "" {
		t.Errorf("escalation triggers mismatch (-want +got):\n%s", diff)
	}
	if !risk.TierOverride {
		t.Error("expected tier override to be recorded")
	}
	if risk.FundingTier != model.TierLightDD {
		t.Errorf("expected funding tier LIGHT_DD, got %s", risk.FundingTier)
	}
}

func TestSelectTier_ScoreRaisesTier(t *testing.T) {
	signals := []model.RiskSignal{
		{Category: model.RiskIdentityProvenance, Severity: 100},
		{Category: model.RiskClaimsVerification, Severity: 100},
		{Category: model.RiskTransactionIntegrity, Severity: 100},
	}
	selected, risk := SelectTier(model.FundingSignals{AmountUSD: 500_000}, signals)

	if risk.Overall != 60 {
		t.Fatalf("expected overall 60, got %d", risk.Overall)
	}
	if selected != model.TierStandardDD {
		t.Errorf("expected STANDARD_DD, got %s", selected)
	}
	if !risk.TierOverride {
		t.Error("expected tier override")
	}
}

func TestSelectTier_ScoreNeverLowers(t *testing.T) {
	selected, risk := SelectTier(model.FundingSignals{AmountUSD: 80_000_000}, nil)
	if selected != model.TierFullPlaybook {
		t.Errorf("expected FULL_PLAYBOOK, got %s", selected)
	}
	if risk.TierOverride {
		t.Error("expected no override when score band is below funding tier")
	}
}

func TestSelectTier_NewDomainCompositeTrigger(t *testing.T) {
	partial := []model.RiskSignal{
		{Category: model.RiskEntityAuthenticity, Name: SignalDomainAgeUnder90d, Severity: 10},
		{Category: model.RiskEntityAuthenticity, Name: SignalHiddenOwnership, Severity: 10},
	}
	selected, risk := SelectTier(model.FundingSignals{}, partial)
	if selected != model.TierFastVerify || len(risk.EscalationTriggers) != 0 {
		t.Fatalf("expected no escalation with two of three components, got %s %v", selected, risk.EscalationTriggers)
	}

	full := append(partial, model.RiskSignal{Category: model.RiskIdentityProvenance, Name: SignalImpersonationPattern, Severity: 10})
	selected, risk = SelectTier(model.FundingSignals{}, full)
	if selected != model.TierFullPlaybook {
		t.Errorf("expected FULL_PLAYBOOK, got %s", selected)
	}
	if diff := cmp.Diff([]string{TriggerNewDomainImpersonation}, risk.EscalationTriggers); diff != "" {
		t.Errorf("escalation triggers mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectTier_UnknownTriggerIgnored(t *testing.T) {
	signals := []model.RiskSignal{{Category: model.RiskClaimsVerification, Name: "x", Severity: 5, Trigger: "made_up"}}
	selected, risk := SelectTier(model.FundingSignals{}, signals)
	if selected != model.TierFastVerify {
		t.Errorf("expected FAST_VERIFY, got %s", selected)
	}
	if len(risk.EscalationTriggers) != 0 {
		t.Errorf("expected unknown trigger to be ignored, got %v", risk.EscalationTriggers)
	}
}

// signalGrid enumerates a spread of funding and signal combinations
func signalGrid() ([]model.FundingSignals, [][]model.RiskSignal) {
	fundings := []model.FundingSignals{
		{},
		{AmountUSD: 900_000, Round: "pre-seed"},
		{AmountUSD: 2_000_000},
		{AmountUSD: 10_000_000, Round: "series-a"},
		{AmountUSD: 75_000_000},
		{AmountUSD: 2_000_000, WireInstructionsProvided: true},
	}

	var sets [][]model.RiskSignal
	sets = append(sets, nil)
	for _, sev := range []int{0, 15, 35, 60, 90, 100} {
		var set []model.RiskSignal
		for _, c := range model.RiskCategories {
			set = append(set, model.RiskSignal{Category: c, Name: string(c), Severity: sev})
		}
		sets = append(sets, set)
	}
	for _, trig := range HardTriggers() {
		sets = append(sets, []model.RiskSignal{{Category: model.RiskIdentityProvenance, Name: trig, Trigger: trig, Severity: 1}})
	}
	return fundings, sets
}

func TestSelectTier_Monotonicity(t *testing.T) {
	fundings, sets := signalGrid()
	for _, f := range fundings {
		for _, signals := range sets {
			selected, _ := SelectTier(f, signals)
			if selected < FundingTier(f) {
				t.Errorf("tier %s below funding tier %s for %+v", selected, FundingTier(f), f)
			}
		}
	}
}

func TestSelectTier_EscalationInvariance(t *testing.T) {
	fundings, sets := signalGrid()
	for _, f := range fundings {
		for _, signals := range sets {
			selected, risk := SelectTier(f, signals)
			if len(risk.EscalationTriggers) > 0 && selected != model.TierFullPlaybook {
				t.Errorf("triggers %v present but tier is %s", risk.EscalationTriggers, selected)
			}
		}
	}
}

func TestSelectTier_Deterministic(t *testing.T) {
	fundings, sets := signalGrid()
	for _, f := range fundings {
		for _, signals := range sets {
			t1, r1 := SelectTier(f, signals)
			t2, r2 := SelectTier(f, signals)
			if t1 != t2 {
				t.Fatalf("tier differs between runs: %s vs %s", t1, t2)
			}
			if diff := cmp.Diff(r1, r2); diff != "" {
				t.Fatalf("risk score differs between runs:\n%s", diff)
			}
		}
	}
}
