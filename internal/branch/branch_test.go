package branch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/diligentia/internal/fetch"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var acme = model.Entity{Name: "Acme Robotics", Kind: model.EntityCompany}

// staticSearcher returns the same results for every query
func staticSearcher(results ...search.Result) search.Searcher {
	return search.SearcherFunc(func(ctx context.Context, _ string, _ search.Mode, _ int) ([]search.Result, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return results, nil
	})
}

func testEnv(s search.Searcher) *Env {
	env := (&Env{
		Search: s,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixedNow },
	}).WithDefaults()
	return env
}

func TestEntityProfile_ExtractsFactsAndClaims(t *testing.T) {
	env := testEnv(staticSearcher(search.Result{
		URL:     "https://www.reuters.com/companies/acme",
		Title:   "Acme Robotics profile",
		Snippet: "Acme Robotics was founded in 2019 and is headquartered in Berlin, Germany.",
	}))

	out, err := NewEntityProfile().Execute(context.Background(), acme, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	founded, ok := out.Facts["founded_year"]
	if !ok || founded.Value != "2019" || founded.Kind != model.FactCategorical {
		t.Errorf("unexpected founded_year fact: %+v", founded)
	}
	if founded.Reliability != model.ReliabilityReliable {
		t.Errorf("expected reliable source, got %s", founded.Reliability)
	}
	if hq := out.Facts["headquarters"]; hq.Value != "Berlin" || hq.Kind != model.FactMulti {
		t.Errorf("unexpected headquarters fact: %+v", hq)
	}

	want := EntityProfileFindings{FoundedYear: "2019", Headquarters: []string{"Berlin"}}
	if diff := cmp.Diff(want, out.Findings); diff != "" {
		t.Errorf("unexpected findings (-want +got):\n%s", diff)
	}

	if len(out.Sources) != 1 || out.Sources[0].ID != model.SourceID("https://www.reuters.com/companies/acme") {
		t.Fatalf("expected one deterministic source, got %+v", out.Sources)
	}
	if len(out.Claims) != 1 {
		t.Fatalf("expected 1 claim (duplicates collapsed), got %d", len(out.Claims))
	}
	claim := out.Claims[0]
	if claim.Type != model.ClaimTypeOrigin || claim.Verdict != model.VerdictPending {
		t.Errorf("unexpected claim: %+v", claim)
	}
	if diff := cmp.Diff([]string{out.Sources[0].ID}, claim.Citations); diff != "" {
		t.Errorf("claim must cite its source (-want +got):\n%s", diff)
	}

	// baseline + founded + headquarters + one reliable source
	if !approx(out.Confidence, 0.3+0.12+0.1+0.05) {
		t.Errorf("unexpected confidence %.4f", out.Confidence)
	}
}

func TestTopic_IgnoresResultsNotAboutEntity(t *testing.T) {
	env := testEnv(staticSearcher(search.Result{
		URL:     "https://news.example.com/other",
		Snippet: "Globex was founded in 1989 and is headquartered in Springfield.",
	}))

	out, err := NewEntityProfile().Execute(context.Background(), acme, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.Facts) != 0 || len(out.Sources) != 0 {
		t.Errorf("expected nothing from unrelated results, got facts=%v sources=%v", out.Facts, out.Sources)
	}
	if !approx(out.Confidence, BaselineConfidence) {
		t.Errorf("expected baseline confidence, got %.4f", out.Confidence)
	}
}

func TestTopic_OfflineUsesKnownClaims(t *testing.T) {
	env := testEnv(search.None{})
	env.KnownClaims = []model.Claim{{Text: "Acme Robotics was founded in 2021"}}

	out, err := NewEntityProfile().Execute(context.Background(), acme, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.Facts["founded_year"]; got.Value != "2021" || got.Reliability != model.ReliabilityInferred {
		t.Errorf("expected inferred founded_year 2021, got %+v", got)
	}
	if len(out.Sources) != 0 {
		t.Errorf("offline run must not invent sources, got %v", out.Sources)
	}
	if len(out.Notes) != 2 {
		t.Errorf("expected search failure and offline notes, got %v", out.Notes)
	}
}

func TestTopic_CancelledContextFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := testEnv(staticSearcher(search.Result{URL: "https://a.example", Snippet: "Acme Robotics news."}))
	if _, err := NewTeam().Execute(ctx, acme, env); err == nil {
		t.Error("expected context error")
	}
}

func TestAdverseMedia_SanctionsRaiseStopRule(t *testing.T) {
	env := testEnv(staticSearcher(search.Result{
		URL:     "https://news.example.com/acme-ofac",
		Snippet: "Acme Robotics was added to the OFAC sanctions list last week.",
	}))

	out, err := NewAdverseMedia().Execute(context.Background(), acme, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := cmp.Diff([]string{model.StopSanctionsHit}, out.StopRules); diff != "" {
		t.Errorf("unexpected stop rules (-want +got):\n%s", diff)
	}
	findings := out.Findings.(AdverseMediaFindings)
	if findings.Clean || len(findings.Sanctions) != 1 {
		t.Errorf("unexpected findings: %+v", findings)
	}
	if out.Confidence > 0.01 {
		t.Errorf("sanctions hit must crush clean-record confidence, got %.4f", out.Confidence)
	}
}

func TestAdverseMedia_CleanRecord(t *testing.T) {
	env := testEnv(staticSearcher(
		search.Result{URL: "https://a.example.com/1", Snippet: "Acme Robotics announced a partnership with a logistics firm."},
		search.Result{URL: "https://b.example.com/2", Snippet: "Acme Robotics launched its second warehouse robot."},
		search.Result{URL: "https://c.example.com/3", Snippet: "Acme Robotics opens an office in Lisbon."},
	))

	out, err := NewAdverseMedia().Execute(context.Background(), acme, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.StopRules) != 0 || len(out.RiskSignals) != 0 {
		t.Errorf("expected no adverse signals, got %v %v", out.StopRules, out.RiskSignals)
	}
	if !out.Findings.(AdverseMediaFindings).Clean {
		t.Error("expected clean record")
	}
	if out.Confidence <= BaselineConfidence {
		t.Errorf("expected confidence above baseline, got %.4f", out.Confidence)
	}
}

func TestRegistryLookup(t *testing.T) {
	tests := []struct {
		desc        string
		searcher    search.Searcher
		wantTrigger bool
		wantHits    int
	}{
		{
			desc: "authoritative registry hit",
			searcher: staticSearcher(search.Result{
				URL:     "https://opencorporates.com/companies/gb/12345678",
				Snippet: "Acme Robotics Ltd, company number 12345678, registered office London.",
			}),
			wantHits: 1,
		},
		{
			desc: "only directory listings",
			searcher: staticSearcher(search.Result{
				URL:     "https://directory.example.com/acme",
				Snippet: "Acme Robotics registration number pending review.",
			}),
			wantTrigger: true,
		},
		{
			desc:     "search unavailable",
			searcher: search.None{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			out, err := NewRegistryLookup().Execute(context.Background(), acme, testEnv(tt.searcher))
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			triggered := false
			for _, s := range out.RiskSignals {
				if s.Trigger == "entity_absent_from_registries" {
					triggered = true
				}
			}
			if triggered != tt.wantTrigger {
				t.Errorf("trigger = %v, want %v (signals %v)", triggered, tt.wantTrigger, out.RiskSignals)
			}
			findings := out.Findings.(RegistryLookupFindings)
			if findings.RegistryHits != tt.wantHits {
				t.Errorf("registry hits = %d, want %d", findings.RegistryHits, tt.wantHits)
			}
			if tt.wantHits > 0 && out.Sources[0].Type != model.SourceRegistry {
				t.Errorf("expected registry source type, got %s", out.Sources[0].Type)
			}
		})
	}
}

func TestWireVerification_BeneficiaryMismatch(t *testing.T) {
	env := testEnv(search.None{})
	env.Playbook = model.PlaybookSignals{
		WireInstructionsProvided: true,
		WireBeneficiary:          "Globex Holdings Ltd",
		ContactEmail:             "cfo@gmail.com",
	}

	out, err := NewWireVerification().Execute(context.Background(), acme, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := cmp.Diff([]string{model.StopWireMismatch}, out.StopRules); diff != "" {
		t.Errorf("unexpected stop rules (-want +got):\n%s", diff)
	}
	names := make(map[string]bool)
	for _, s := range out.RiskSignals {
		names[s.Name] = true
	}
	if !names["wire_beneficiary_mismatch"] || !names["free_mail_contact"] {
		t.Errorf("expected mismatch and free mail signals, got %v", out.RiskSignals)
	}
	if out.Findings.(WireVerificationFindings).BeneficiaryMatches {
		t.Error("beneficiary must not match")
	}
}

func TestWireVerification_BeneficiaryMatches(t *testing.T) {
	entity := acme
	entity.Website = "https://www.acmerobotics.io"
	env := testEnv(search.None{})
	env.Playbook = model.PlaybookSignals{
		WireBeneficiary: "ACME Robotics, Inc.",
		ContactEmail:    "finance@acmerobotics.io",
	}

	out, err := NewWireVerification().Execute(context.Background(), entity, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.StopRules) != 0 || len(out.RiskSignals) != 0 {
		t.Errorf("expected no signals, got %v %v", out.StopRules, out.RiskSignals)
	}
	f := out.Findings.(WireVerificationFindings)
	if !f.BeneficiaryMatches || !f.ContactDomainOK {
		t.Errorf("unexpected findings: %+v", f)
	}
	if !approx(out.Confidence, 0.3+0.25+0.1) {
		t.Errorf("unexpected confidence %.4f", out.Confidence)
	}
}

func TestSameEntityName(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Acme Robotics", "ACME Robotics, Inc.", true},
		{"Acme Robotics GmbH", "acme-robotics", true},
		{"AcmeRobotics Ltd", "Acme Robotics", true},
		{"Acme Robotics", "Acme Robotics Holdings", false},
		{"", "Acme", false},
	}
	for _, tt := range tests {
		if got := SameEntityName(tt.a, tt.b); got != tt.want {
			t.Errorf("SameEntityName(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDomainPresence_LiveSite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Acme Robotics</h1>
<p>Acme Robotics was founded in 2019 and builds warehouse robots. Read our privacy policy.</p>
<a href="/about">About</a></body></html>`))
	}))
	defer server.Close()

	entity := acme
	entity.Website = server.URL
	env := testEnv(search.None{})
	env.Fetcher = fetch.NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second}, nil)

	out, err := NewDomainPresence().Execute(context.Background(), entity, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := out.Findings.(DomainPresenceFindings)
	if !f.Reachable || !f.NameOnSite {
		t.Errorf("unexpected findings: %+v", f)
	}
	if got := out.Facts["founded_year"].Value; got != "2019" {
		t.Errorf("expected founded_year 2019, got %q", got)
	}
	if len(out.Sources) != 1 || out.Sources[0].Type != model.SourceWebsite {
		t.Errorf("expected one website source, got %+v", out.Sources)
	}
	if len(out.RiskSignals) != 0 {
		t.Errorf("expected no signals, got %v", out.RiskSignals)
	}
}

func TestDomainPresence_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	entity := acme
	entity.Website = server.URL
	env := testEnv(search.None{})
	env.Fetcher = fetch.NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second}, nil)

	out, err := NewDomainPresence().Execute(context.Background(), entity, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.RiskSignals) != 1 || out.RiskSignals[0].Name != "website_unreachable" {
		t.Errorf("expected website_unreachable, got %v", out.RiskSignals)
	}
	if out.Confidence >= BaselineConfidence {
		t.Errorf("expected penalised confidence, got %.4f", out.Confidence)
	}
}

func TestDomainPresence_NoWebsite(t *testing.T) {
	out, err := NewDomainPresence().Execute(context.Background(), acme, testEnv(search.None{}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(out.Notes) != 1 || len(out.RiskSignals) != 0 {
		t.Errorf("expected a note and no signals, got %v %v", out.Notes, out.RiskSignals)
	}
}
