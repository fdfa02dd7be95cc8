package ledger

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
)

// Snippet is one piece of evidence text and where it came from
type Snippet struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text"`
}

// Gatherer collects evidence snippets relevant to a claim
type Gatherer interface {
	Gather(ctx context.Context, subject string, claim model.Claim) ([]Snippet, error)
}

// contradictionMarkers negate or cast doubt on a statement. Matched on word
// boundaries, case-insensitively.
var contradictionMarkers = regexp.MustCompile(`(?i)\b(?:not|never|denied|denies|false|fake|fraud|fraudulent|failed to replicate|retracted|no peer-reviewed evidence|debunked|no record of|disputed|misleading)\b`)

var wordPattern = regexp.MustCompile(`[a-z0-9$][a-z0-9$.,%-]*[a-z0-9%]|[a-z0-9]`)

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true, "being": true,
	"company": true, "from": true, "have": true, "into": true, "more": true, "over": true,
	"said": true, "than": true, "that": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "were": true, "what": true,
	"when": true, "which": true, "while": true, "will": true, "with": true, "would": true,
	"year": true, "years": true, "since": true, "through": true,
}

// Keywords returns the distinctive lower-case terms of a claim: words of
// four or more letters that are not stopwords, and any number
func Keywords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		w = strings.TrimRight(w, ".,")
		numeric := strings.ContainsAny(w, "0123456789")
		if (!numeric && len(w) < 4) || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Assessment is the outcome of weighing snippets against a claim
type Assessment struct {
	Verdict    model.Verdict
	Supporting []Snippet // Independent supporting snippets, one per host
	Disputing  []Snippet
}

// VerdictFromEvidence weighs snippets against a claim. A snippet carrying a
// contradiction marker next to a claim keyword disputes the claim outright.
// Otherwise snippets that share enough keywords support it, counted once per
// host: two or more verify, one partially verifies, none leaves it
// unverified. The result depends only on the snippet set, not its order.
func VerdictFromEvidence(claim model.Claim, snippets []Snippet) Assessment {
	keywords := Keywords(claim.Text)
	if len(keywords) == 0 {
		return Assessment{Verdict: model.VerdictUnverified}
	}
	minHits := 2
	if len(keywords) < 2 {
		minHits = 1
	}

	sorted := append([]Snippet(nil), snippets...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].URL != sorted[j].URL {
			return sorted[i].URL < sorted[j].URL
		}
		return sorted[i].Text < sorted[j].Text
	})

	var a Assessment
	supportHosts := make(map[string]bool)
	for _, s := range sorted {
		lower := strings.ToLower(s.Text)
		hits := 0
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if contradictionMarkers.MatchString(s.Text) {
			a.Disputing = append(a.Disputing, s)
			continue
		}
		if hits < minHits {
			continue
		}
		host := snippetHost(s)
		if supportHosts[host] {
			continue
		}
		supportHosts[host] = true
		a.Supporting = append(a.Supporting, s)
	}

	switch {
	case len(a.Disputing) > 0:
		a.Verdict = model.VerdictContradicted
	case len(a.Supporting) >= 2:
		a.Verdict = model.VerdictVerified
	case len(a.Supporting) == 1:
		a.Verdict = model.VerdictPartiallyVerified
	default:
		a.Verdict = model.VerdictUnverified
	}
	return a
}

// snippetHost identifies the publisher of a snippet; snippets without a URL
// are their own publisher
func snippetHost(s Snippet) string {
	if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	return "text:" + strings.ToLower(s.Text)
}

// claimConfidence maps a verdict and the amount of support to a confidence
func claimConfidence(a Assessment) float64 {
	switch a.Verdict {
	case model.VerdictVerified:
		return minFloat(0.75+0.05*float64(len(a.Supporting)-2), 0.95)
	case model.VerdictPartiallyVerified:
		return 0.55
	case model.VerdictContradicted:
		return 0.1
	default:
		return 0.25
	}
}

// Verifier assigns verdicts to claims from gathered evidence
type Verifier struct {
	gatherer Gatherer
	workers  int
	logger   zerolog.Logger
}

// NewVerifier creates a verifier. workers bounds concurrent verifications.
func NewVerifier(gatherer Gatherer, workers int, logger zerolog.Logger) *Verifier {
	if workers <= 0 {
		workers = 4
	}
	return &Verifier{gatherer: gatherer, workers: workers, logger: logger}
}

// Verify gathers evidence for one claim and returns it with a verdict,
// confidence and citations. When evidence cannot be gathered the claim is
// returned unverified together with the error.
func (v *Verifier) Verify(ctx context.Context, subject string, claim model.Claim) (model.Claim, error) {
	snippets, err := v.gatherer.Gather(ctx, subject, claim)
	if err != nil {
		claim.Verdict = model.VerdictUnverified
		claim.Confidence = 0.25
		return claim, fmt.Errorf("gather evidence: %w", err)
	}

	a := VerdictFromEvidence(claim, snippets)
	claim.Verdict = a.Verdict
	claim.Confidence = claimConfidence(a)

	evidence := a.Supporting
	if a.Verdict == model.VerdictContradicted {
		evidence = a.Disputing
	}
	for _, s := range evidence {
		if s.URL != "" {
			claim.Citations = appendUnique(claim.Citations, model.SourceID(s.URL))
		}
	}
	return claim, nil
}

// VerifyAll verifies claims concurrently. Output order matches input order;
// gather failures leave the claim unverified and are logged.
func (v *Verifier) VerifyAll(ctx context.Context, subject string, claims []model.Claim) []model.Claim {
	out := make([]model.Claim, len(claims))
	var g errgroup.Group
	g.SetLimit(v.workers)
	for i, c := range claims {
		i, c := i, c
		g.Go(func() error {
			verified, err := v.Verify(ctx, subject, c)
			if err != nil {
				v.logger.Debug().Err(err).Str("claim_id", c.ID).Msg("claim left unverified")
			}
			out[i] = verified
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// SearchGatherer gathers snippets through web search: the claim text itself
// and the subject with the claim's keywords are searched concurrently, and
// the extractor keeps only sentences that mention the claim
type SearchGatherer struct {
	search     search.Searcher
	extractor  extract.Extractor
	mode       search.Mode
	maxResults int
}

// NewSearchGatherer creates a search-backed gatherer
func NewSearchGatherer(s search.Searcher, extractor extract.Extractor, mode search.Mode, maxResults int) *SearchGatherer {
	if extractor == nil {
		extractor = extract.NewPatternExtractor()
	}
	if maxResults <= 0 {
		maxResults = 6
	}
	return &SearchGatherer{search: s, extractor: extractor, mode: mode, maxResults: maxResults}
}

// Gather implements Gatherer
func (g *SearchGatherer) Gather(ctx context.Context, subject string, claim model.Claim) ([]Snippet, error) {
	keywords := Keywords(claim.Text)
	queries := []string{claim.Text}
	if subject != "" && len(keywords) > 0 {
		terms := keywords
		if len(terms) > 5 {
			terms = terms[:5]
		}
		queries = append(queries, fmt.Sprintf("%q %s", subject, strings.Join(terms, " ")))
	}

	var (
		mu       sync.Mutex
		results  []search.Result
		failures int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	for _, q := range queries {
		q := q
		eg.Go(func() error {
			r, err := g.search.Search(egCtx, q, g.mode, g.maxResults)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				if egCtx.Err() != nil {
					return err
				}
				return nil
			}
			results = append(results, r...)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if failures == len(queries) {
		return nil, fmt.Errorf("all %d searches failed", failures)
	}

	rule := extract.Rule{Name: "claim_evidence", Keywords: keywords}
	var snippets []Snippet
	for _, r := range results {
		findings, err := g.extractor.Extract(ctx, extract.ExtractRequest{
			Text:      r.Text(),
			SourceURL: r.URL,
			Subject:   subject,
			Rules:     []extract.Rule{rule},
		})
		if err != nil {
			return nil, err
		}
		for _, f := range findings {
			snippets = append(snippets, Snippet{URL: r.URL, Text: f.Sentence})
		}
	}
	return snippets, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
