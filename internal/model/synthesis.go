package model

// RiskLevel is the overall risk band of a synthesis
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

var riskByRank = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// Rank orders risk levels from low (0) to critical (3)
func (r RiskLevel) Rank() int {
	if rank, ok := riskRank[r]; ok {
		return rank
	}
	return riskRank[RiskCritical]
}

// Worse returns the level one band worse, saturating at critical
func (r RiskLevel) Worse() RiskLevel {
	rank := r.Rank() + 1
	if rank >= len(riskByRank) {
		rank = len(riskByRank) - 1
	}
	return riskByRank[rank]
}

// AtLeast returns r, or floor if floor is worse
func (r RiskLevel) AtLeast(floor RiskLevel) RiskLevel {
	if floor.Rank() > r.Rank() {
		return floor
	}
	return r
}

// Recommendation is the investment verdict of a synthesis
type Recommendation string

const (
	RecommendStrongBuy        Recommendation = "STRONG_BUY"
	RecommendBuy              Recommendation = "BUY"
	RecommendHold             Recommendation = "HOLD"
	RecommendPass             Recommendation = "PASS"
	RecommendInsufficientData Recommendation = "INSUFFICIENT_DATA"
)

// Resolution records how a cross-branch contradiction was settled
type Resolution string

const (
	ResolvedToA Resolution = "resolved_to_a"
	ResolvedToB Resolution = "resolved_to_b"
	Unresolved  Resolution = "unresolved"
	BothValid   Resolution = "both_valid"
)

// Contradiction is a disagreement between two branches on one field
type Contradiction struct {
	Field         string     `json:"field"`
	SourceBranchA BranchKind `json:"source_branch_a"`
	ValueA        string     `json:"value_a"`
	SourceBranchB BranchKind `json:"source_branch_b"`
	ValueB        string     `json:"value_b"`
	Resolution    Resolution `json:"resolution"`
}

// Synthesis is the terminal verdict artifact of a job
type Synthesis struct {
	OverallRisk        RiskLevel       `json:"overall_risk"`
	Verdict            Recommendation  `json:"verdict"`
	Recommendation     string          `json:"recommendation"`
	ShouldDisengage    bool            `json:"should_disengage"`
	StopRulesTriggered []string        `json:"stop_rules_triggered"`
	Discrepancies      []Contradiction `json:"discrepancies"`
	Confidence         float64         `json:"confidence"`
	CompletedBranches  int             `json:"completed_branches"`
	TotalBranches      int             `json:"total_branches"`
	Rationale          []string        `json:"rationale,omitempty"`
}

// Stop rules beyond the hard escalation triggers. Any triggered stop rule
// forces a critical, disengage verdict.
const (
	StopContradictedIdentity = "contradicted_identity_claim"
	StopSanctionsHit         = "sanctions_or_enforcement_hit"
	StopWireMismatch         = "wire_destination_mismatch"
	StopCriticalAdverseMedia = "critical_adverse_media"
)
