package branch

import (
	"context"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
)

// EntityProfileFindings is the payload of the entity_profile branch
type EntityProfileFindings struct {
	FoundedYear  string   `json:"founded_year,omitempty"`
	Headquarters []string `json:"headquarters,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Descriptions int      `json:"descriptions"`
}

// NewEntityProfile researches who the entity is: founding, location, registration
func NewEntityProfile() Branch {
	return &topic{
		kind:  model.BranchEntityProfile,
		class: model.ClassCore,
		queries: []string{
			`"{name}" company profile`,
			`"{name}" founded headquarters`,
		},
		rules: []extract.Rule{
			patternRule("founded_year", 0.12, foundedPattern, "founded", "established", "incorporated", "started"),
			patternRule("headquarters", 0.1, headquartersPattern, "headquartered", "based", "hq"),
			patternRule("jurisdiction", 0.1, jurisdictionPattern, "incorporated", "registered"),
			keywordRule("description", 0.05, "is a", "provides", "develops", "builds", "offers"),
		},
		facts: []factRule{
			{finding: "founded_year", fact: "founded_year", kind: model.FactCategorical},
			{finding: "headquarters", fact: "headquarters", kind: model.FactMulti},
			{finding: "jurisdiction", fact: "jurisdiction", kind: model.FactCategorical},
		},
		thresholds: []threshold{{finding: "description", min: 2, bonus: 0.05}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			p := EntityProfileFindings{Descriptions: extract.Count(g.findings, "description")}
			if f, ok := extract.First(g.findings, "founded_year"); ok {
				p.FoundedYear = f.Value
			}
			if f, ok := extract.First(g.findings, "jurisdiction"); ok {
				p.Jurisdiction = f.Value
			}
			p.Headquarters = values(g.findings, "headquarters")
			return p
		},
	}
}

// TeamFindings is the payload of the team branch
type TeamFindings struct {
	CEO       string   `json:"ceo,omitempty"`
	Founders  []string `json:"founders,omitempty"`
	Employees float64  `json:"employees,omitempty"`
}

// NewTeam researches leadership and headcount
func NewTeam() Branch {
	return &topic{
		kind:  model.BranchTeam,
		class: model.ClassCore,
		queries: []string{
			`"{name}" CEO founders`,
			`"{name}" leadership team employees`,
		},
		rules: []extract.Rule{
			patternRule("ceo", 0.12, ceoPattern, "ceo", "chief executive"),
			patternRule("founder", 0.1, founderPattern, "founded by", "co-founded by", "cofounded by"),
			amountRule("employee_count", 0.08, employeesPattern, "employees", "staff", "people", "team members"),
			keywordRule("executive_bio", 0.05, "previously", "formerly", "prior to", "graduated"),
		},
		facts: []factRule{
			{finding: "ceo", fact: "ceo", kind: model.FactCategorical},
			{finding: "employee_count", fact: "employee_count", kind: model.FactNumeric},
		},
		thresholds: []threshold{{finding: "founder", min: 2, bonus: 0.05}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			t := TeamFindings{Founders: values(g.findings, "founder")}
			if f, ok := extract.First(g.findings, "ceo"); ok {
				t.CEO = f.Value
			}
			if f, ok := extract.First(g.findings, "employee_count"); ok {
				t.Employees = f.Number
			}
			return t
		},
	}
}

// FundingHistoryFindings is the payload of the funding_history branch
type FundingHistoryFindings struct {
	TotalRaisedUSD float64  `json:"total_raised_usd,omitempty"`
	Rounds         []string `json:"rounds,omitempty"`
	Investors      []string `json:"investors,omitempty"`
	ValuationUSD   float64  `json:"valuation_usd,omitempty"`
	FoundedYear    string   `json:"founded_year,omitempty"`
}

// NewFundingHistory researches rounds, investors and totals raised
func NewFundingHistory() Branch {
	return &topic{
		kind:  model.BranchFundingHistory,
		class: model.ClassCore,
		queries: []string{
			`"{name}" raises funding round`,
			`"{name}" investors valuation`,
		},
		rules: []extract.Rule{
			amountRule("funding_total", 0.12, fundingPattern, "raised"),
			patternRule("round", 0.08, roundPattern, "seed", "series", "growth", "pre-ipo"),
			patternRule("investor", 0.08, investorPattern, "led by", "backed by", "investors include"),
			amountRule("valuation", 0.05, valuationPattern, "valuation"),
			patternRule("founded_year", 0.03, foundedPattern, "founded", "established", "started"),
		},
		facts: []factRule{
			{finding: "funding_total", fact: "funding_total_usd", kind: model.FactNumeric},
			{finding: "founded_year", fact: "founded_year", kind: model.FactCategorical},
		},
		thresholds: []threshold{
			{finding: "round", min: 2, bonus: 0.05},
			{finding: "investor", min: 2, bonus: 0.05},
		},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			f := FundingHistoryFindings{
				Rounds:    values(g.findings, "round"),
				Investors: values(g.findings, "investor"),
			}
			if v, ok := extract.First(g.findings, "funding_total"); ok {
				f.TotalRaisedUSD = v.Number
			}
			if v, ok := extract.First(g.findings, "valuation"); ok {
				f.ValuationUSD = v.Number
			}
			if v, ok := extract.First(g.findings, "founded_year"); ok {
				f.FoundedYear = v.Value
			}
			return f
		},
		post: func(_ context.Context, g *gathered, _ model.Entity, env *Env, out *Outcome, _ *ConfidenceBuilder) error {
			// A claimed raise far above anything reported publicly is a claims-verification risk
			claimed := env.Funding.AmountUSD
			reported, ok := extract.First(g.findings, "funding_total")
			if claimed > 0 && ok && reported.Number > 0 && claimed > 3*reported.Number {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskClaimsVerification,
					Name:     "funding_claim_exceeds_reported",
					Severity: 45,
					Detail:   "requested amount is more than 3x the publicly reported total",
				})
			}
			return nil
		},
	}
}

// AdverseMediaFindings is the payload of the adverse_media branch
type AdverseMediaFindings struct {
	Critical  []string `json:"critical,omitempty"`
	Sanctions []string `json:"sanctions,omitempty"`
	Major     []string `json:"major,omitempty"`
	Minor     []string `json:"minor,omitempty"`
	Clean     bool     `json:"clean"`
}

// NewAdverseMedia screens news and enforcement sources for negative coverage.
// Confidence here is confidence that the entity is clean: hits are penalties.
func NewAdverseMedia() Branch {
	return &topic{
		kind:  model.BranchAdverseMedia,
		class: model.ClassCore,
		mode:  search.ModeThorough,
		queries: []string{
			`"{name}" fraud OR lawsuit OR investigation`,
			`"{name}" sanctions OR enforcement OR indicted`,
			`"{name}" news`,
		},
		rules: []extract.Rule{
			keywordRule("adverse_critical", 0, adverseCriticalKeywords...),
			keywordRule("adverse_sanction", 0, adverseSanctionKeywords...),
			keywordRule("adverse_major", 0, adverseMajorKeywords...),
			keywordRule("adverse_minor", 0, adverseMinorKeywords...),
			keywordRule("neutral_coverage", 0.1, "announced", "launched", "partnership", "appointed", "expands", "opens"),
		},
		thresholds: []threshold{{finding: "neutral_coverage", min: 3, bonus: 0.1}},
		signals: []signalRule{
			{
				finding:  "adverse_critical",
				signal:   model.RiskSignal{Category: model.RiskIdentityProvenance, Name: "critical_adverse_media", Severity: 95},
				stopRule: model.StopCriticalAdverseMedia,
				penalty:  0.4,
			},
			{
				finding:  "adverse_sanction",
				signal:   model.RiskSignal{Category: model.RiskSectorRegulatory, Name: "sanctions_or_enforcement", Severity: 90},
				stopRule: model.StopSanctionsHit,
				penalty:  0.4,
			},
			{
				finding: "adverse_major",
				signal:  model.RiskSignal{Category: model.RiskClaimsVerification, Name: "adverse_media_major", Severity: 55},
				penalty: 0.15,
			},
			{
				finding: "adverse_minor",
				signal:  model.RiskSignal{Category: model.RiskDocumentConsistency, Name: "adverse_media_minor", Severity: 25},
				penalty: 0.05,
			},
		},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			a := AdverseMediaFindings{
				Critical:  sentences(g.findings, "adverse_critical"),
				Sanctions: sentences(g.findings, "adverse_sanction"),
				Major:     sentences(g.findings, "adverse_major"),
				Minor:     sentences(g.findings, "adverse_minor"),
			}
			a.Clean = len(a.Critical)+len(a.Sanctions)+len(a.Major) == 0
			return a
		},
	}
}

// values returns the distinct values of a finding name
func values(findings []extract.Finding, name string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range findings {
		if f.Name != name || f.Value == "" || seen[f.Value] {
			continue
		}
		seen[f.Value] = true
		out = append(out, f.Value)
	}
	return out
}

// sentences returns the distinct supporting sentences of a finding name
func sentences(findings []extract.Finding, name string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range findings {
		if f.Name != name || seen[f.Sentence] {
			continue
		}
		seen[f.Sentence] = true
		out = append(out, f.Sentence)
	}
	return out
}
