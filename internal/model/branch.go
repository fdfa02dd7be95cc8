package model

import (
	"sort"
	"time"
)

// BranchKind names one research unit
type BranchKind string

// Core branches
const (
	BranchEntityProfile  BranchKind = "entity_profile"
	BranchTeam           BranchKind = "team"
	BranchFundingHistory BranchKind = "funding_history"
	BranchAdverseMedia   BranchKind = "adverse_media"
)

// Conditional branches
const (
	BranchIPPatents         BranchKind = "ip_patents"
	BranchRegulatory        BranchKind = "regulatory"
	BranchTeamBackground    BranchKind = "team_background"
	BranchMarketCompetition BranchKind = "market_competition"
	BranchCustomerTraction  BranchKind = "customer_traction"
)

// Investor-playbook branches
const (
	BranchWireVerification    BranchKind = "wire_verification"
	BranchRegulatoryStatus    BranchKind = "regulatory_status"
	BranchBeneficialOwnership BranchKind = "beneficial_ownership"
	BranchReferenceCheck      BranchKind = "reference_check"
)

// Micro branches
const (
	BranchDomainPresence BranchKind = "domain_presence"
	BranchRegistryLookup BranchKind = "registry_lookup"
)

// BranchClass is the tag of the branch variant
type BranchClass string

const (
	ClassCore        BranchClass = "core"
	ClassConditional BranchClass = "conditional"
	ClassPlaybook    BranchClass = "investor_playbook"
	ClassMicro       BranchClass = "micro"
)

// BranchStatus tracks a branch through pending, running,
// awaiting_verification, and one of the terminal states
type BranchStatus string

const (
	BranchPending              BranchStatus = "pending"
	BranchRunning              BranchStatus = "running"
	BranchAwaitingVerification BranchStatus = "awaiting_verification"
	BranchCompleted            BranchStatus = "completed"
	BranchFailed               BranchStatus = "failed"
	BranchSkipped              BranchStatus = "skipped"
)

// IsTerminal reports whether the branch reached completed, failed or skipped
func (s BranchStatus) IsTerminal() bool {
	return s == BranchCompleted || s == BranchFailed || s == BranchSkipped
}

// FactKind controls how cross-check compares a fact
type FactKind string

const (
	FactCategorical FactKind = "categorical" // Normalized string equality
	FactNumeric     FactKind = "numeric"     // Relative tolerance
	FactMulti       FactKind = "multi"       // Several values may be valid at once
)

// FactValue is a field a branch reports that other branches may also report
type FactValue struct {
	Value       string      `json:"value"`
	Number      float64     `json:"number,omitempty"`
	Kind        FactKind    `json:"kind"`
	Reliability Reliability `json:"reliability"`
	SourceID    string      `json:"source_id,omitempty"`
}

// BranchResult is the immutable output of one branch once it is terminal
type BranchResult struct {
	Kind        BranchKind           `json:"kind"`
	Class       BranchClass          `json:"class"`
	Status      BranchStatus         `json:"status"`
	Findings    any                  `json:"findings,omitempty"` // Kind-specific payload
	Facts       map[string]FactValue `json:"facts,omitempty"`
	Sources     []Source             `json:"sources,omitempty"`
	Confidence  float64              `json:"confidence"`
	Claims      []Claim              `json:"claims,omitempty"`
	RiskSignals []RiskSignal         `json:"risk_signals,omitempty"`
	StopRules   []string             `json:"stop_rules,omitempty"`
	Notes       []string             `json:"notes,omitempty"`
	Error       string               `json:"error,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
}

// Duration is the wall-clock time the branch ran
func (r BranchResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SortedKinds returns the keys of a result map in a stable order
func SortedKinds(results map[BranchKind]BranchResult) []BranchKind {
	kinds := make([]BranchKind, 0, len(results))
	for kind := range results {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
