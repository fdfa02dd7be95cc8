package model

import (
	"fmt"
	"strings"
)

// DDTier is the depth-of-investigation level for a job. Ordered: a larger
// value means deeper diligence.
type DDTier int

const (
	TierFastVerify   DDTier = 0
	TierLightDD      DDTier = 1
	TierStandardDD   DDTier = 2
	TierFullPlaybook DDTier = 3
)

func (t DDTier) String() string {
	switch t {
	case TierFullPlaybook:
		return "FULL_PLAYBOOK"
	case TierStandardDD:
		return "STANDARD_DD"
	case TierLightDD:
		return "LIGHT_DD"
	default:
		return "FAST_VERIFY"
	}
}

// MarshalText encodes the tier by name
func (t DDTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name
func (t *DDTier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier converts a tier name to DDTier
func ParseTier(s string) (DDTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FULL_PLAYBOOK", "FULL":
		return TierFullPlaybook, nil
	case "STANDARD_DD", "STANDARD":
		return TierStandardDD, nil
	case "LIGHT_DD", "LIGHT":
		return TierLightDD, nil
	case "FAST_VERIFY", "FAST", "":
		return TierFastVerify, nil
	default:
		return TierFastVerify, fmt.Errorf("unknown tier %q", s)
	}
}

// MaxTier returns the deeper of two tiers
func MaxTier(a, b DDTier) DDTier {
	if a > b {
		return a
	}
	return b
}

// RiskCategory is one of the fixed weighted risk dimensions
type RiskCategory string

const (
	RiskIdentityProvenance   RiskCategory = "identity_provenance"
	RiskClaimsVerification   RiskCategory = "claims_verification"
	RiskTransactionIntegrity RiskCategory = "transaction_integrity"
	RiskSectorRegulatory     RiskCategory = "sector_regulatory"
	RiskEntityAuthenticity   RiskCategory = "entity_authenticity"
	RiskDocumentConsistency  RiskCategory = "document_consistency"
)

// RiskCategories lists all categories in reporting order
var RiskCategories = []RiskCategory{
	RiskIdentityProvenance,
	RiskClaimsVerification,
	RiskTransactionIntegrity,
	RiskSectorRegulatory,
	RiskEntityAuthenticity,
	RiskDocumentConsistency,
}

// RiskSignal is one observed risk indicator. Trigger, when set, names a hard
// escalation trigger the signal represents.
type RiskSignal struct {
	Category RiskCategory `json:"category" yaml:"category"`
	Name     string       `json:"name" yaml:"name"`
	Severity int          `json:"severity" yaml:"severity"` // 0-100
	Trigger  string       `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Detail   string       `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// RiskScore is a pure function of the signals seen for a job
type RiskScore struct {
	Overall            int                  `json:"overall"` // 0-100
	Breakdown          map[RiskCategory]int `json:"breakdown"`
	Signals            []RiskSignal         `json:"signals"`
	EscalationTriggers []string             `json:"escalation_triggers"`
	FundingTier        DDTier               `json:"funding_tier"`
	ScoreTier          DDTier               `json:"score_tier"`
	RecommendedTier    DDTier               `json:"recommended_tier"`
	TierOverride       bool                 `json:"tier_override"`
}
