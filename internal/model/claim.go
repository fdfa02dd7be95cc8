package model

import "time"

// Claim is an atomic, independently verifiable statement about the entity
type Claim struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`                     // The claim text itself
	Type           ClaimType  `json:"claim_type"`               // Nature of the claim
	ExtractedFrom  string     `json:"extracted_from,omitempty"` // Branch kind, "caller", or a URL
	Heuristic      string     `json:"heuristic,omitempty"`      // Which extraction rule matched (e.g., "keyword:founded")
	Verdict        Verdict    `json:"verdict"`
	Confidence     float64    `json:"confidence"`
	Freshness      Freshness  `json:"freshness"`
	Citations      []string   `json:"citations,omitempty"`      // Source IDs
	Contradictions []string   `json:"contradictions,omitempty"` // Claim IDs this claim supersedes or disputes
	SourceDate     *time.Time `json:"source_date,omitempty"`
	RecordedAt     time.Time  `json:"recorded_at"`
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeIdentity    ClaimType = "identity"    // Who the entity is, registration, founders
	ClaimTypeOrigin      ClaimType = "origin"      // Founding date/place
	ClaimTypeFunding     ClaimType = "funding"     // Rounds raised, investors
	ClaimTypeMetric      ClaimType = "metric"      // Revenue, users, growth
	ClaimTypeRegulatory  ClaimType = "regulatory"  // Licences, approvals, legal status
	ClaimTypeAttribution ClaimType = "attribution" // Partnerships, customers, endorsements
	ClaimTypeScientific  ClaimType = "scientific"  // Technical or scientific efficacy
	ClaimTypeGeneral     ClaimType = "general"
)

// Verdict is the verification state of a claim
type Verdict string

const (
	VerdictPending           Verdict = "pending"
	VerdictVerified          Verdict = "verified"
	VerdictPartiallyVerified Verdict = "partially_verified"
	VerdictContradicted      Verdict = "contradicted"
	VerdictUnverified        Verdict = "unverified"
)

// Public maps the verifier vocabulary to the reported verdict vocabulary
// (verified, disputed, unverifiable, context_needed).
func (v Verdict) Public() string {
	switch v {
	case VerdictVerified:
		return "verified"
	case VerdictPartiallyVerified:
		return "context_needed"
	case VerdictContradicted:
		return "disputed"
	default:
		return "unverifiable"
	}
}

// IsTerminal reports whether verification finished
func (v Verdict) IsTerminal() bool {
	return v != VerdictPending && v != ""
}

// Freshness classifies the recency of the sources behind a claim
type Freshness string

const (
	FreshnessCurrent    Freshness = "current"    // <= 1 year
	FreshnessStale      Freshness = "stale"      // <= 3 years
	FreshnessHistorical Freshness = "historical" // older, or undated
)

// FreshnessAt assigns freshness from a source date relative to now
func FreshnessAt(sourceDate *time.Time, now time.Time) Freshness {
	if sourceDate == nil {
		return FreshnessHistorical
	}
	age := now.Sub(*sourceDate)
	switch {
	case age <= 365*24*time.Hour:
		return FreshnessCurrent
	case age <= 3*365*24*time.Hour:
		return FreshnessStale
	default:
		return FreshnessHistorical
	}
}

// Integrity is the ledger-level grade derived from claim verdicts
type Integrity string

const (
	IntegrityHigh   Integrity = "high"
	IntegrityMedium Integrity = "medium"
	IntegrityLow    Integrity = "low"
)

// LedgerSnapshot is a point-in-time copy of a job's claim ledger
type LedgerSnapshot struct {
	JobID              string    `json:"job_id"`
	Claims             []Claim   `json:"claims"`
	ContradictionCount int       `json:"contradiction_count"`
	UnverifiableCount  int       `json:"unverifiable_count"`
	OverallIntegrity   Integrity `json:"overall_integrity"`
	TakenAt            time.Time `json:"taken_at"`
}
