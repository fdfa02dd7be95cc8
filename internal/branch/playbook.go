package branch

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
	"github.com/ppiankov/diligentia/internal/tier"
)

var (
	ownerPattern    = regexp.MustCompile(`(?i)\b(?:owned by|subsidiary of|parent company(?: is)?|controlled by|majority shareholder(?: is)?)\s+([A-Z][A-Za-z0-9&.' -]{1,50}?)(?:[,.;]|\s+(?:and|since|in)\b|$)`)
	legalSuffixes   = regexp.MustCompile(`(?i)\b(?:inc|incorporated|llc|l\.l\.c|ltd|limited|plc|corp|corporation|co|company|gmbh|ag|sa|sas|bv|nv|pte|pty|oy|ab|srl|spa)\b\.?`)
	nonAlnum        = regexp.MustCompile(`[^a-z0-9]+`)
	freeMailDomains = map[string]bool{
		"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "outlook.com": true,
		"hotmail.com": true, "proton.me": true, "protonmail.com": true, "icloud.com": true,
		"aol.com": true, "mail.com": true, "gmx.com": true, "yandex.com": true,
	}
)

// offshoreKeywords suggest an ownership chain routed through secrecy
// jurisdictions or nominees
var offshoreKeywords = []string{
	"nominee director", "nominee shareholder", "shell company", "british virgin islands",
	"cayman islands", "seychelles", "panama papers", "pandora papers", "bearer shares",
}

// WireVerificationFindings is the payload of the wire_verification branch
type WireVerificationFindings struct {
	Beneficiary        string   `json:"beneficiary,omitempty"`
	BeneficiaryMatches bool     `json:"beneficiary_matches"`
	ContactDomain      string   `json:"contact_domain,omitempty"`
	ContactDomainOK    bool     `json:"contact_domain_ok"`
	FraudReports       []string `json:"fraud_reports,omitempty"`
}

// NewWireVerification checks that payment instructions point at the entity
// itself and that nothing reported about it looks like payment fraud
func NewWireVerification() Branch {
	return &topic{
		kind:  model.BranchWireVerification,
		class: model.ClassPlaybook,
		mode:  search.ModeThorough,
		queries: []string{
			`"{name}" wire fraud OR payment scam OR impersonation`,
			`"{name}" changed bank details warning`,
		},
		rules: []extract.Rule{
			keywordRule("bec_pattern", 0, "changed bank details", "new bank account", "updated wire instructions", "impersonating", "spoofed email", "business email compromise", "invoice fraud"),
		},
		signals: []signalRule{{
			finding: "bec_pattern",
			signal: model.RiskSignal{
				Category: model.RiskTransactionIntegrity,
				Name:     "business_email_compromise_reports",
				Severity: 85,
				Trigger:  tier.TriggerBusinessEmailCompromise,
			},
			penalty: 0.3,
		}},
		post: func(_ context.Context, g *gathered, entity model.Entity, env *Env, out *Outcome, conf *ConfidenceBuilder) error {
			f := WireVerificationFindings{
				Beneficiary:  env.Playbook.WireBeneficiary,
				FraudReports: sentences(g.findings, "bec_pattern"),
			}

			if f.Beneficiary != "" {
				f.BeneficiaryMatches = SameEntityName(f.Beneficiary, entity.Name)
				if f.BeneficiaryMatches {
					conf.Finding("beneficiary_matches", 0.25)
				} else {
					out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
						Category: model.RiskTransactionIntegrity,
						Name:     "wire_beneficiary_mismatch",
						Severity: 95,
						Trigger:  tier.TriggerPaymentAnomaly,
						Detail:   "beneficiary " + f.Beneficiary + " does not match " + entity.Name,
					})
					out.StopRules = append(out.StopRules, model.StopWireMismatch)
					conf.Penalty(0.3)
				}
			} else {
				out.Notes = append(out.Notes, "no wire beneficiary supplied")
			}

			if email := env.Playbook.ContactEmail; email != "" {
				f.ContactDomain = emailDomain(email)
				f.ContactDomainOK = contactDomainMatches(f.ContactDomain, entity.Website)
				switch {
				case freeMailDomains[f.ContactDomain]:
					out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
						Category: model.RiskIdentityProvenance,
						Name:     "free_mail_contact",
						Severity: 50,
						Detail:   "wire instructions sent from a free mail domain",
					})
					conf.Penalty(0.1)
				case !f.ContactDomainOK && entity.Website != "":
					out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
						Category: model.RiskIdentityProvenance,
						Name:     tier.SignalImpersonationPattern,
						Severity: 60,
						Detail:   "contact domain " + f.ContactDomain + " differs from the website",
					})
					conf.Penalty(0.1)
				default:
					conf.Finding("contact_domain_ok", 0.1)
				}
			}

			out.Findings = f
			return nil
		},
	}
}

// RegulatoryStatusFindings is the payload of the regulatory_status branch
type RegulatoryStatusFindings struct {
	Licenses    []string `json:"licenses,omitempty"`
	Registers   int      `json:"register_mentions"`
	Enforcement []string `json:"enforcement,omitempty"`
}

// NewRegulatoryStatus confirms that claimed licences appear on a register
func NewRegulatoryStatus() Branch {
	return &topic{
		kind:  model.BranchRegulatoryStatus,
		class: model.ClassPlaybook,
		mode:  search.ModeThorough,
		queries: []string{
			`"{name}" register authorised firm`,
			`"{name}" regulator licence number`,
		},
		rules: []extract.Rule{
			patternRule("regulatory_license", 0.2, licensePattern, "licensed", "authorised", "authorized", "regulated", "registered"),
			keywordRule("register_entry", 0.08, "firm reference number", "register entry", "license number", "licence number", "crd", "frn"),
			keywordRule("adverse_sanction", 0, adverseSanctionKeywords...),
		},
		facts: []factRule{
			{finding: "regulatory_license", fact: "regulatory_license", kind: model.FactCategorical},
		},
		signals: []signalRule{{
			finding:  "adverse_sanction",
			signal:   model.RiskSignal{Category: model.RiskSectorRegulatory, Name: "regulatory_enforcement", Severity: 90},
			stopRule: model.StopSanctionsHit,
			penalty:  0.35,
		}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			return RegulatoryStatusFindings{
				Licenses:    values(g.findings, "regulatory_license"),
				Registers:   extract.Count(g.findings, "register_entry"),
				Enforcement: sentences(g.findings, "adverse_sanction"),
			}
		},
		post: func(_ context.Context, g *gathered, _ model.Entity, env *Env, out *Outcome, _ *ConfidenceBuilder) error {
			_, licensed := extract.First(g.findings, "regulatory_license")
			if licensed || !g.searched || !env.Playbook.ClaimsRegulatoryStatus {
				return nil
			}
			out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
				Category: model.RiskSectorRegulatory,
				Name:     "claimed_license_not_found",
				Severity: 70,
				Trigger:  tier.TriggerUnverifiedRegulated,
				Detail:   "regulatory status is claimed but no register entry was found",
			})
			return nil
		},
	}
}

// BeneficialOwnershipFindings is the payload of the beneficial_ownership branch
type BeneficialOwnershipFindings struct {
	Owners           []string `json:"owners,omitempty"`
	OffshoreMentions []string `json:"offshore_mentions,omitempty"`
	Disclosed        bool     `json:"disclosed"`
}

// NewBeneficialOwnership traces who ultimately owns and controls the entity
func NewBeneficialOwnership() Branch {
	return &topic{
		kind:  model.BranchBeneficialOwnership,
		class: model.ClassPlaybook,
		mode:  search.ModeThorough,
		queries: []string{
			`"{name}" beneficial owner shareholders`,
			`"{name}" parent company subsidiary`,
		},
		rules: []extract.Rule{
			patternRule("owner", 0.15, ownerPattern, "owned by", "subsidiary of", "parent company", "controlled by", "shareholder"),
			keywordRule("psc_register", 0.1, "persons with significant control", "beneficial ownership register", "ultimate beneficial owner"),
			keywordRule("offshore", 0, offshoreKeywords...),
		},
		facts: []factRule{
			{finding: "owner", fact: "parent_company", kind: model.FactCategorical},
		},
		signals: []signalRule{{
			finding: "offshore",
			signal:  model.RiskSignal{Category: model.RiskEntityAuthenticity, Name: tier.SignalHiddenOwnership, Severity: 60},
			penalty: 0.15,
		}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			b := BeneficialOwnershipFindings{
				Owners:           values(g.findings, "owner"),
				OffshoreMentions: sentences(g.findings, "offshore"),
			}
			_, psc := extract.First(g.findings, "psc_register")
			b.Disclosed = psc || len(b.Owners) > 0
			return b
		},
		post: func(_ context.Context, g *gathered, _ model.Entity, env *Env, out *Outcome, _ *ConfidenceBuilder) error {
			if env.Playbook.OffshoreStructure {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskEntityAuthenticity,
					Name:     "offshore_structure",
					Severity: 40,
					Detail:   "caller reported an offshore holding structure",
				})
			}
			return nil
		},
	}
}

// ReferenceCheckFindings is the payload of the reference_check branch
type ReferenceCheckFindings struct {
	Partners []string `json:"partners,omitempty"`
	Positive int      `json:"positive_mentions"`
	Disputed []string `json:"disputed,omitempty"`
}

var partnerPattern = regexp.MustCompile(`(?i)\b(?:partnered with|partnership with|in partnership with|customer of|selected by|works with)\s+([A-Z][A-Za-z0-9&.' -]{1,40}?)(?:[,.;]|\s+(?:and|to|for|on)\b|$)`)

// NewReferenceCheck looks for third parties vouching for, or disowning, the entity
func NewReferenceCheck() Branch {
	return &topic{
		kind:  model.BranchReferenceCheck,
		class: model.ClassPlaybook,
		queries: []string{
			`"{name}" partnership announced`,
			`"{name}" reviews testimonials customers`,
		},
		rules: []extract.Rule{
			patternRule("partner", 0.12, partnerPattern, "partner", "customer of", "selected by", "works with"),
			keywordRule("positive_reference", 0.05, "testimonial", "case study", "recommend", "award", "recognized"),
			keywordRule("reference_disputed", 0, "denied any partnership", "no relationship with", "not affiliated", "never worked with", "has no affiliation"),
		},
		thresholds: []threshold{{finding: "positive_reference", min: 3, bonus: 0.05}},
		signals: []signalRule{{
			finding: "reference_disputed",
			signal:  model.RiskSignal{Category: model.RiskClaimsVerification, Name: "reference_disputed", Severity: 70},
			penalty: 0.2,
		}},
		summarize: func(g *gathered, _ model.Entity, _ *Env) any {
			return ReferenceCheckFindings{
				Partners: values(g.findings, "partner"),
				Positive: extract.Count(g.findings, "positive_reference"),
				Disputed: sentences(g.findings, "reference_disputed"),
			}
		},
	}
}

// NormalizeName reduces an organisation name to comparable tokens:
// lower case, legal suffixes and punctuation removed
func NormalizeName(name string) string {
	s := legalSuffixes.ReplaceAllString(name, " ")
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// SameEntityName reports whether two names refer to the same organisation
func SameEntityName(a, b string) bool {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.ReplaceAll(na, " ", "") == strings.ReplaceAll(nb, " ", "")
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

// contactDomainMatches reports whether domain is the website's host or one
// of its parents or subdomains
func contactDomainMatches(domain, website string) bool {
	host := websiteHost(website)
	if domain == "" || host == "" {
		return false
	}
	return domain == host || strings.HasSuffix(host, "."+domain) || strings.HasSuffix(domain, "."+host)
}

func websiteHost(website string) string {
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
