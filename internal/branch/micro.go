package branch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/fetch"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
	"github.com/ppiankov/diligentia/internal/tier"
)

// maxCheckedLinks bounds liveness checks of outbound links per site
const maxCheckedLinks = 8

// DomainPresenceFindings is the payload of the domain_presence branch
type DomainPresenceFindings struct {
	Website       string   `json:"website"`
	Reachable     bool     `json:"reachable"`
	FinalURL      string   `json:"final_url,omitempty"`
	NameOnSite    bool     `json:"name_on_site"`
	ExternalHosts []string `json:"external_hosts,omitempty"`
	DeadLinks     int      `json:"dead_links"`
	CheckedLinks   int      `json:"checked_links"`
}

type domainPresence struct {
	rules []extract.Rule
}

// NewDomainPresence fetches the entity's own website and checks that it is
// live, names the entity, and links out to things that exist
func NewDomainPresence() Branch {
	return &domainPresence{
		rules: []extract.Rule{
			patternRule("founded_year", 0.08, foundedPattern, "founded", "established", "incorporated", "since"),
			patternRule("headquarters", 0.05, headquartersPattern, "headquartered", "based", "hq"),
			keywordRule("contact_page", 0.05, "contact us", "get in touch", "imprint", "impressum", "registered office"),
			keywordRule("legal_page", 0.05, "privacy policy", "terms of service", "terms and conditions"),
		},
	}
}

func (d *domainPresence) Kind() model.BranchKind   { return model.BranchDomainPresence }
func (d *domainPresence) Class() model.BranchClass { return model.ClassMicro }

// Execute implements Branch
func (d *domainPresence) Execute(ctx context.Context, entity model.Entity, env *Env) (Outcome, error) {
	f := DomainPresenceFindings{Website: entity.Website}
	out := Outcome{Findings: f}
	conf := NewConfidence()

	if entity.Website == "" {
		out.Notes = append(out.Notes, "no website supplied")
		out.Confidence = conf.Value()
		return out, nil
	}
	if env.Fetcher == nil {
		out.Notes = append(out.Notes, "page fetching disabled")
		out.Confidence = conf.Value()
		return out, nil
	}

	target := entity.Website
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}

	page, err := env.Fetcher.FetchWithRetry(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		if errors.Is(err, fetch.ErrDisallowed) {
			out.Notes = append(out.Notes, "website disallows crawling")
			out.Confidence = conf.Value()
			return out, nil
		}
		env.Logger.Debug().Err(err).Str("url", target).Msg("website fetch failed")
		out.Notes = append(out.Notes, fmt.Sprintf("website unreachable: %v", err))
		out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
			Category: model.RiskEntityAuthenticity,
			Name:     "website_unreachable",
			Severity: 55,
			Detail:   target,
		})
		out.Confidence = conf.Penalty(0.1).Value()
		return out, nil
	}

	f.Reachable = true
	f.FinalURL = page.FinalURL
	src := newSource(env, model.SourceWebsite, page.FinalURL, "")
	src.PublishedAt = page.LastModified
	out.Sources = []model.Source{src}
	conf.Finding("reachable", 0.1)

	text, err := extract.VisibleText(page.HTML)
	if err != nil {
		out.Notes = append(out.Notes, "website HTML could not be parsed")
	}

	f.NameOnSite = mentions(text, entity.Name)
	if f.NameOnSite {
		conf.Finding("name_on_site", 0.1)
	} else if text != "" {
		out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
			Category: model.RiskIdentityProvenance,
			Name:     "website_does_not_name_entity",
			Severity: 45,
			Detail:   page.FinalURL,
		})
	}

	findings, err := env.Extractor.Extract(ctx, extract.ExtractRequest{
		Text:      text,
		SourceURL: page.FinalURL,
		Subject:   entity.Name,
		Rules:     d.rules,
	})
	if err != nil && ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	for _, finding := range findings {
		conf.Finding(finding.Name, finding.Weight)
	}
	out.Facts = websiteFacts(findings, src)

	links, err := extract.Links(page.HTML, page.FinalURL)
	if err == nil {
		f.ExternalHosts = extract.ExternalHosts(links)
		if env.Liveness != nil {
			var urls []string
			for _, l := range links {
				if !l.IsSameHost {
					urls = append(urls, l.URL)
				}
				if len(urls) >= maxCheckedLinks {
					break
				}
			}
			for _, live := range env.Liveness.Check(ctx, urls) {
				f.CheckedLinks++
				if live.IsDead {
					f.DeadLinks++
				}
			}
			if f.CheckedLinks >= 3 && f.DeadLinks*2 > f.CheckedLinks {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskDocumentConsistency,
					Name:     "mostly_dead_outbound_links",
					Severity: 30,
					Detail:   fmt.Sprintf("%d of %d outbound links are dead", f.DeadLinks, f.CheckedLinks),
				})
				conf.Penalty(0.05)
			}
		}
	}

	out.Claims = env.Claims.ExtractText(text, string(model.BranchDomainPresence))
	if len(out.Claims) > maxClaimsPerBranch {
		out.Claims = out.Claims[:maxClaimsPerBranch]
	}
	for i := range out.Claims {
		out.Claims[i].ID = claimID(model.BranchDomainPresence, out.Claims[i].Text)
		out.Claims[i].Citations = []string{src.ID}
		out.Claims[i].SourceDate = src.PublishedAt
		out.Claims[i].RecordedAt = env.now()
	}

	out.Findings = f
	out.Confidence = conf.Sources(out.Sources).Value()
	return out, nil
}

func websiteFacts(findings []extract.Finding, src model.Source) map[string]model.FactValue {
	facts := make(map[string]model.FactValue)
	if f, ok := extract.First(findings, "founded_year"); ok {
		facts["founded_year"] = model.FactValue{Value: f.Value, Kind: model.FactCategorical, Reliability: src.Reliability, SourceID: src.ID}
	}
	if f, ok := extract.First(findings, "headquarters"); ok {
		facts["headquarters"] = model.FactValue{Value: f.Value, Kind: model.FactMulti, Reliability: src.Reliability, SourceID: src.ID}
	}
	if len(facts) == 0 {
		return nil
	}
	return facts
}

// RegistryLookupFindings is the payload of the registry_lookup branch
type RegistryLookupFindings struct {
	RegistryHits    int      `json:"registry_hits"`
	RegistrySources []string `json:"registry_sources,omitempty"`
	Jurisdiction    string   `json:"jurisdiction,omitempty"`
	Inactive        []string `json:"inactive,omitempty"`
}

// NewRegistryLookup searches company registers for the entity
func NewRegistryLookup() Branch {
	return &topic{
		kind:  model.BranchRegistryLookup,
		class: model.ClassMicro,
		mode:  search.ModeFast,
		queries: []string{
			`"{name}" company registration number`,
			`"{name}" opencorporates OR "companies house" OR sec.gov`,
		},
		rules: []extract.Rule{
			keywordRule("registration", 0.12, "company number", "registration number", "registered office", "incorporation date", "cik", "ein", "filing"),
			patternRule("jurisdiction", 0.08, jurisdictionPattern, "incorporated", "registered"),
			keywordRule("inactive_status", 0, "dissolved", "struck off", "in liquidation", "inactive", "revoked"),
		},
		facts: []factRule{
			{finding: "jurisdiction", fact: "jurisdiction", kind: model.FactCategorical},
		},
		signals: []signalRule{{
			finding: "inactive_status",
			signal:  model.RiskSignal{Category: model.RiskEntityAuthenticity, Name: "registry_status_inactive", Severity: 65},
			penalty: 0.2,
		}},
		post: func(_ context.Context, g *gathered, _ model.Entity, _ *Env, out *Outcome, conf *ConfidenceBuilder) error {
			f := RegistryLookupFindings{Inactive: sentences(g.findings, "inactive_status")}
			if j, ok := extract.First(g.findings, "jurisdiction"); ok {
				f.Jurisdiction = j.Value
			}
			for i, s := range out.Sources {
				if s.Reliability == model.ReliabilityAuthoritative {
					out.Sources[i].Type = model.SourceRegistry
					f.RegistryHits++
					f.RegistrySources = append(f.RegistrySources, s.URL)
				}
			}
			if f.RegistryHits > 0 {
				conf.Finding("registry_hit", 0.15)
			} else if g.searched && !g.offline {
				out.RiskSignals = append(out.RiskSignals, model.RiskSignal{
					Category: model.RiskEntityAuthenticity,
					Name:     "no_registry_record",
					Severity: 70,
					Trigger:  tier.TriggerAbsentFromRegistries,
					Detail:   "no authoritative registry source mentions the entity",
				})
			}
			out.Findings = f
			return nil
		},
	}
}
