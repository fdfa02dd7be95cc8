package branch

import (
	"context"
	"regexp"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/model"
)

var (
	formerEmployerPattern = regexp.MustCompile(`(?i:formerly|previously|prior to that|before joining)[ ,]+(?i:worked\s+)?(?i:at|with|of)\s+([A-Z][\w&.-]+(?:\s[A-Z][\w&.-]+){0,2})`)
	educationPattern      = regexp.MustCompile(`(?i:graduated from|degree from|alumnus of|alumna of|studied at)\s+(?i:the\s+)?([A-Z][A-Za-z .'-]{2,50}?)(?:[,.;]|\s+(?:and|with|in)\b|$)`)
	exitPattern           = regexp.MustCompile(`(?i)\b(?:acquired by|sold (?:it )?to|exited to)\s+([A-Z][A-Za-z0-9&.' -]{1,40}?)(?:[,.;]|\s+(?:in|for)\b|$)`)
	marketSizePattern     = regexp.MustCompile(`(?i)\b(?:market size|tam|addressable market|market)\s+(?:of|worth|valued at|estimated at|expected to reach)\s+(\$\s?[0-9][0-9.,]*\s*(?:k|m|mm|million|b|bn|billion)?)`)
	caseStudyPattern      = regexp.MustCompile(`(?i)\b(?:customers include|clients include|used by|trusted by)\s+([A-Z][A-Za-z0-9&.' -]{1,50}?)(?:[,.;]|\s+(?:and|or)\b|$)`)
)

// IPPatentsFindings is the payload of the ip_patents branch
type IPPatentsFindings struct {
	PatentNumbers []string `json:"patent_numbers,omitempty"`
	PatentCount   float64  `json:"patent_count,omitempty"`
	Pending       int      `json:"pending_mentions"`
}

// NewIPPatents looks for granted or pending patents the entity holds
func NewIPPatents() Branch {
	return &topic{
		kind:  model.BranchIPPatents,
		class: model.ClassConditional,
		queries: []string{
			`"{name}" patent`,
			`"{name}" assignee patents granted`,
		},
		rules: []extract.Rule{
			patternRule("patent_number", 0.15, patentPattern, "patent"),
			amountRule("patent_count", 0.08, patentCountPattern, "patent"),
			keywordRule("patent_pending", 0.03, "patent pending", "patent-pending", "filed a patent", "patent application"),
		},
		facts: []factRule{
			{finding: "patent_count", fact: "patent_count", kind: model.FactNumeric},
		},
		thresholds: []threshold{{finding: "patent_number", min: 2, bonus: 0.05}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			p := IPPatentsFindings{
				PatentNumbers: values(g.findings, "patent_number"),
				Pending:       extract.Count(g.findings, "patent_pending"),
			}
			if f, ok := extract.First(g.findings, "patent_count"); ok {
				p.PatentCount = f.Number
			}
			return p
		},
		post: func(_ context.Context, g *gathered, _ model.Entity, env *Env, out *Outcome, _ *ConfidenceBuilder) error {
			_, numbered := extract.First(g.findings, "patent_number")
			if env.Complexity.HasPatentMentions && g.searched && !numbered {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskClaimsVerification,
					Name:     "patent_claims_unverified",
					Severity: 35,
					Detail:   "patents are mentioned but no patent number was found",
				})
			}
			return nil
		},
	}
}

// RegulatoryFindings is the payload of the regulatory branch
type RegulatoryFindings struct {
	Licenses    []string `json:"licenses,omitempty"`
	Enforcement []string `json:"enforcement,omitempty"`
	Compliance  int      `json:"compliance_mentions"`
}

// NewRegulatory checks licensing and enforcement in a regulated sector
func NewRegulatory() Branch {
	return &topic{
		kind:  model.BranchRegulatory,
		class: model.ClassConditional,
		queries: []string{
			`"{name}" license regulator`,
			`"{name}" compliance enforcement`,
		},
		rules: []extract.Rule{
			patternRule("regulatory_license", 0.15, licensePattern, "licensed", "authorised", "authorized", "regulated", "registered"),
			keywordRule("compliance", 0.05, "compliance", "compliant", "soc 2", "iso 27001", "hipaa", "gdpr", "pci"),
			keywordRule("adverse_sanction", 0, adverseSanctionKeywords...),
		},
		facts: []factRule{
			{finding: "regulatory_license", fact: "regulatory_license", kind: model.FactCategorical},
		},
		thresholds: []threshold{{finding: "compliance", min: 2, bonus: 0.05}},
		signals: []signalRule{{
			finding:  "adverse_sanction",
			signal:   model.RiskSignal{Category: model.RiskSectorRegulatory, Name: "regulatory_enforcement", Severity: 85},
			stopRule: model.StopSanctionsHit,
			penalty:  0.3,
		}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			return RegulatoryFindings{
				Licenses:    values(g.findings, "regulatory_license"),
				Enforcement: sentences(g.findings, "adverse_sanction"),
				Compliance:  extract.Count(g.findings, "compliance"),
			}
		},
		post: func(_ context.Context, g *gathered, _ model.Entity, env *Env, out *Outcome, _ *ConfidenceBuilder) error {
			if _, ok := extract.First(g.findings, "regulatory_license"); ok || !g.searched {
				return nil
			}
			if env.Complexity.RegulatedSector {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskSectorRegulatory,
					Name:     "no_license_found",
					Severity: 50,
					Detail:   "regulated sector but no licence or registration found",
				})
			}
			return nil
		},
	}
}

// TeamBackgroundFindings is the payload of the team_background branch
type TeamBackgroundFindings struct {
	FormerEmployers []string `json:"former_employers,omitempty"`
	Education       []string `json:"education,omitempty"`
	PriorExits      []string `json:"prior_exits,omitempty"`
	Concerns        []string `json:"concerns,omitempty"`
}

// NewTeamBackground digs into the track record of the leadership
func NewTeamBackground() Branch {
	return &topic{
		kind:  model.BranchTeamBackground,
		class: model.ClassConditional,
		queries: []string{
			`"{name}" founder background previously`,
			`"{name}" executives track record`,
		},
		rules: []extract.Rule{
			patternRule("former_employer", 0.1, formerEmployerPattern, "formerly", "previously", "prior to", "before joining"),
			patternRule("education", 0.05, educationPattern, "graduated", "degree", "alumn", "studied"),
			patternRule("prior_exit", 0.1, exitPattern, "acquired", "sold", "exited"),
			keywordRule("founder_concern", 0, "barred", "disqualified director", "previously charged", "convicted", "banned from"),
		},
		thresholds: []threshold{{finding: "former_employer", min: 2, bonus: 0.05}},
		signals: []signalRule{{
			finding: "founder_concern",
			signal:  model.RiskSignal{Category: model.RiskIdentityProvenance, Name: "founder_background_concern", Severity: 65},
			penalty: 0.2,
		}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			return TeamBackgroundFindings{
				FormerEmployers: values(g.findings, "former_employer"),
				Education:       values(g.findings, "education"),
				PriorExits:      values(g.findings, "prior_exit"),
				Concerns:        sentences(g.findings, "founder_concern"),
			}
		},
	}
}

// MarketCompetitionFindings is the payload of the market_competition branch
type MarketCompetitionFindings struct {
	Competitors   []string `json:"competitors,omitempty"`
	MarketSizeUSD float64  `json:"market_size_usd,omitempty"`
	Trends        int      `json:"trend_mentions"`
}

// NewMarketCompetition maps competitors and market size
func NewMarketCompetition() Branch {
	return &topic{
		kind:  model.BranchMarketCompetition,
		class: model.ClassConditional,
		queries: []string{
			`"{name}" competitors alternatives`,
			`"{name}" market size industry`,
		},
		rules: []extract.Rule{
			patternRule("competitor", 0.1, competitorPattern, "competitor", "competes", "rival", "alternative"),
			amountRule("market_size", 0.08, marketSizePattern, "market", "tam"),
			keywordRule("market_trend", 0.04, "growing market", "market share", "cagr", "industry report", "market leader"),
		},
		thresholds: []threshold{{finding: "competitor", min: 3, bonus: 0.07}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			m := MarketCompetitionFindings{
				Competitors: values(g.findings, "competitor"),
				Trends:      extract.Count(g.findings, "market_trend"),
			}
			if f, ok := extract.First(g.findings, "market_size"); ok {
				m.MarketSizeUSD = f.Number
			}
			return m
		},
	}
}

// CustomerTractionFindings is the payload of the customer_traction branch
type CustomerTractionFindings struct {
	Customers     float64  `json:"customers,omitempty"`
	RevenueUSD    float64  `json:"revenue_usd,omitempty"`
	NamedAccounts []string `json:"named_accounts,omitempty"`
}

// NewCustomerTraction looks for independent evidence of revenue and customers
func NewCustomerTraction() Branch {
	return &topic{
		kind:  model.BranchCustomerTraction,
		class: model.ClassConditional,
		queries: []string{
			`"{name}" customers revenue`,
			`"{name}" case study clients`,
		},
		rules: []extract.Rule{
			amountRule("customer_count", 0.1, customersPattern, "customers", "clients", "users", "businesses"),
			amountRule("revenue", 0.12, revenuePattern, "revenue", "arr", "sales"),
			patternRule("named_account", 0.08, caseStudyPattern, "customers include", "clients include", "used by", "trusted by"),
		},
		facts: []factRule{
			{finding: "revenue", fact: "revenue_usd", kind: model.FactNumeric},
			{finding: "customer_count", fact: "customer_count", kind: model.FactNumeric},
		},
		thresholds: []threshold{{finding: "named_account", min: 2, bonus: 0.05}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			c := CustomerTractionFindings{NamedAccounts: values(g.findings, "named_account")}
			if f, ok := extract.First(g.findings, "customer_count"); ok {
				c.Customers = f.Number
			}
			if f, ok := extract.First(g.findings, "revenue"); ok {
				c.RevenueUSD = f.Number
			}
			return c
		},
		post: func(_ context.Context, g *gathered, _ model.Entity, env *Env, out *Outcome, _ *ConfidenceBuilder) error {
			_, revenue := extract.First(g.findings, "revenue")
			_, customers := extract.First(g.findings, "customer_count")
			if env.Complexity.ClaimsRevenue && g.searched && !revenue && !customers {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskClaimsVerification,
					Name:     "revenue_claim_unsupported",
					Severity: 40,
					Detail:   "revenue is claimed but no public traction evidence was found",
				})
			}
			return nil
		},
	}
}
