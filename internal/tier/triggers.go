package tier

import (
	"sort"

	"github.com/ppiankov/diligentia/internal/model"
)

// Hard escalation triggers. Any one of them forces FULL_PLAYBOOK.
const (
	TriggerIdentityMismatch        = "identity_mismatch_across_sources"
	TriggerPaymentAnomaly          = "payment_instruction_anomaly"
	TriggerExtraordinaryClaim      = "extraordinary_claim_no_credible_source"
	TriggerUnverifiedRegulated     = "unverified_regulated_domain_claim"
	TriggerBusinessEmailCompromise = "business_email_compromise_pattern"
	TriggerAbsentFromRegistries    = "entity_absent_from_registries"
	TriggerNewDomainImpersonation  = "new_domain_hidden_owner_impersonation"
)

// Component signals of the new-domain trigger. The trigger fires only when
// all three are present.
const (
	SignalDomainAgeUnder90d    = "domain_age_under_90d"
	SignalHiddenOwnership      = "hidden_ownership"
	SignalImpersonationPattern = "impersonation_pattern"
)

var hardTriggers = map[string]bool{
	TriggerIdentityMismatch:        true,
	TriggerPaymentAnomaly:          true,
	TriggerExtraordinaryClaim:      true,
	TriggerUnverifiedRegulated:     true,
	TriggerBusinessEmailCompromise: true,
	TriggerAbsentFromRegistries:    true,
	TriggerNewDomainImpersonation:  true,
}

// IsHardTrigger reports whether name is one of the fixed escalation triggers
func IsHardTrigger(name string) bool {
	return hardTriggers[name]
}

// HardTriggers lists all escalation trigger names in sorted order
func HardTriggers() []string {
	names := make([]string, 0, len(hardTriggers))
	for name := range hardTriggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectTriggers returns the hard triggers present in the inputs, sorted and
// deduplicated. Unknown trigger names on signals are ignored.
func DetectTriggers(funding model.FundingSignals, signals []model.RiskSignal) []string {
	found := make(map[string]bool)

	if funding.WireInstructionsProvided {
		found[TriggerPaymentAnomaly] = true
	}

	var domainAge, hiddenOwner, impersonation bool
	for _, s := range signals {
		if hardTriggers[s.Trigger] {
			found[s.Trigger] = true
		}
		switch s.Name {
		case SignalDomainAgeUnder90d:
			domainAge = true
		case SignalHiddenOwnership:
			hiddenOwner = true
		case SignalImpersonationPattern:
			impersonation = true
		}
	}
	if domainAge && hiddenOwner && impersonation {
		found[TriggerNewDomainImpersonation] = true
	}

	triggers := make([]string, 0, len(found))
	for name := range found {
		triggers = append(triggers, name)
	}
	sort.Strings(triggers)
	return triggers
}
