package model

// FundingSignals describe the size and stage of the raise behind a job
type FundingSignals struct {
	AmountUSD                float64 `json:"amount_usd,omitempty" yaml:"amount_usd,omitempty"`
	Round                    string  `json:"round,omitempty" yaml:"round,omitempty"` // pre-seed, seed, series-a ...
	WireInstructionsProvided bool    `json:"wire_instructions_provided,omitempty" yaml:"wire_instructions_provided,omitempty"`
}

// ComplexitySignals gate the conditional branches
type ComplexitySignals struct {
	HasPatentMentions     bool `json:"has_patent_mentions,omitempty" yaml:"has_patent_mentions,omitempty"`
	RegulatedSector       bool `json:"regulated_sector,omitempty" yaml:"regulated_sector,omitempty"`
	TeamSize              int  `json:"team_size,omitempty" yaml:"team_size,omitempty"`
	HasCompetitorMentions bool `json:"has_competitor_mentions,omitempty" yaml:"has_competitor_mentions,omitempty"`
	ClaimsRevenue         bool `json:"claims_revenue,omitempty" yaml:"claims_revenue,omitempty"`
}

// PlaybookSignals gate the investor-playbook branches of a funding request
type PlaybookSignals struct {
	WireInstructionsProvided bool   `json:"wire_instructions_provided,omitempty" yaml:"wire_instructions_provided,omitempty"`
	WireBeneficiary          string `json:"wire_beneficiary,omitempty" yaml:"wire_beneficiary,omitempty"`
	RegulatedSector          bool   `json:"regulated_sector,omitempty" yaml:"regulated_sector,omitempty"`
	ClaimsRegulatoryStatus   bool   `json:"claims_regulatory_status,omitempty" yaml:"claims_regulatory_status,omitempty"`
	OffshoreStructure        bool   `json:"offshore_structure,omitempty" yaml:"offshore_structure,omitempty"`
	ContactEmail             string `json:"contact_email,omitempty" yaml:"contact_email,omitempty"`
}
