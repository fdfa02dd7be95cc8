package branch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
)

// maxClaimsPerBranch bounds how many discovered claims one branch may hand
// to the ledger
const maxClaimsPerBranch = 4

// factRule publishes a finding as a cross-checkable fact
type factRule struct {
	finding string
	fact    string
	kind    model.FactKind
}

// threshold unlocks bonus confidence once a finding repeats min times
type threshold struct {
	finding string
	min     int
	bonus   float64
}

// signalRule raises a risk signal, and optionally a stop rule, when a
// finding is present
type signalRule struct {
	finding  string
	signal   model.RiskSignal
	stopRule string
	penalty  float64
}

// topic is a search-driven branch described by data: queries to run, rules
// to extract, and how findings turn into facts, confidence and signals
type topic struct {
	kind       model.BranchKind
	class      model.BranchClass
	mode       search.Mode
	queries    []string // "{name}" is replaced with the entity name
	rules      []extract.Rule
	facts      []factRule
	thresholds []threshold
	signals    []signalRule
	// summarize builds the kind-specific findings payload
	summarize func(g *gathered, entity model.Entity, env *Env) any
	// post applies kind-specific logic after the generic pass
	post func(ctx context.Context, g *gathered, entity model.Entity, env *Env, out *Outcome, conf *ConfidenceBuilder) error
}

func (t *topic) Kind() model.BranchKind   { return t.kind }
func (t *topic) Class() model.BranchClass { return t.class }

// gathered is the evidence a topic collected
type gathered struct {
	results  []search.Result
	findings []extract.Finding
	sources  map[string]model.Source // by URL
	searched bool                    // at least one query succeeded
	offline  bool                    // fell back to caller-supplied text
}

func (g *gathered) source(url string) (model.Source, bool) {
	s, ok := g.sources[url]
	return s, ok
}

func (g *gathered) sortedSources() []model.Source {
	out := make([]model.Source, 0, len(g.sources))
	for _, s := range g.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reliability != out[j].Reliability {
			return out[i].Reliability > out[j].Reliability
		}
		return out[i].URL < out[j].URL
	})
	return out
}

// Execute implements Branch
func (t *topic) Execute(ctx context.Context, entity model.Entity, env *Env) (Outcome, error) {
	g, notes, err := t.gather(ctx, entity, env)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Facts:   t.buildFacts(g),
		Sources: g.sortedSources(),
		Notes:   notes,
	}

	conf := NewConfidence()
	weights := make(map[string]float64, len(t.rules))
	for _, r := range t.rules {
		weights[r.Name] = r.Weight
	}
	for _, f := range g.findings {
		conf.Finding(f.Name, weights[f.Name])
	}
	for _, th := range t.thresholds {
		conf.Threshold(extract.Count(g.findings, th.finding), th.min, th.bonus)
	}
	for _, sr := range t.signals {
		if _, ok := extract.First(g.findings, sr.finding); !ok {
			continue
		}
		out.RiskSignals = append(out.RiskSignals, sr.signal)
		if sr.stopRule != "" {
			out.StopRules = append(out.StopRules, sr.stopRule)
		}
		conf.Penalty(sr.penalty)
	}

	out.Claims = t.discoverClaims(g, env)

	if t.post != nil {
		if err := t.post(ctx, g, entity, env, &out, conf); err != nil {
			return Outcome{}, err
		}
	}
	if t.summarize != nil {
		out.Findings = t.summarize(g, entity, env)
	}

	// Post hooks may add sources, so sources are weighed last
	out.Confidence = conf.Sources(out.Sources).Value()
	out.StopRules = uniqueStrings(out.StopRules)
	return out, nil
}

// gather runs the topic's queries and extracts findings. When every query
// fails it falls back to the caller-supplied claims as the only text.
func (t *topic) gather(ctx context.Context, entity model.Entity, env *Env) (*gathered, []string, error) {
	g := &gathered{sources: make(map[string]model.Source)}
	var notes []string

	mode := t.mode
	if mode == "" {
		mode = env.SearchMode
	}

	failures := 0
	for _, tmpl := range t.queries {
		query := strings.ReplaceAll(tmpl, "{name}", entity.Name)
		results, err := env.Search.Search(ctx, query, mode, env.MaxResults)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			failures++
			env.Logger.Debug().Err(err).Str("query", query).Msg("search failed")
			continue
		}
		g.searched = true
		g.results = append(g.results, results...)
	}
	if failures > 0 {
		notes = append(notes, fmt.Sprintf("%d of %d searches failed", failures, len(t.queries)))
	}

	seen := make(map[string]bool)
	for _, r := range g.results {
		text := r.Text()
		if text == "" || !mentions(text, entity.Name) {
			continue
		}
		key := r.URL + "\x00" + text
		if seen[key] {
			continue
		}
		seen[key] = true

		findings, err := env.Extractor.Extract(ctx, extract.ExtractRequest{
			Text:      text,
			SourceURL: r.URL,
			Subject:   entity.Name,
			Rules:     t.rules,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			continue
		}
		if len(findings) == 0 {
			continue
		}
		g.findings = append(g.findings, findings...)
		if r.URL != "" {
			if _, ok := g.sources[r.URL]; !ok {
				g.sources[r.URL] = newSource(env, model.SourceSearch, r.URL, r.Title)
			}
		}
	}

	if !g.searched && len(env.KnownClaims) > 0 {
		g.offline = true
		notes = append(notes, "search unavailable; findings limited to caller-supplied claims")
		var texts []string
		for _, c := range env.KnownClaims {
			texts = append(texts, strings.TrimRight(c.Text, ". ")+".")
		}
		findings, err := env.Extractor.Extract(ctx, extract.ExtractRequest{
			Text:    strings.Join(texts, " "),
			Subject: entity.Name,
			Rules:   t.rules,
		})
		if err != nil && ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		g.findings = append(g.findings, findings...)
	}

	return g, notes, nil
}

// buildFacts publishes the most reliable value of each fact rule
func (t *topic) buildFacts(g *gathered) map[string]model.FactValue {
	facts := make(map[string]model.FactValue)
	for _, fr := range t.facts {
		best := -1
		var bestValue model.FactValue
		for _, f := range g.findings {
			if f.Name != fr.finding || (f.Value == "" && !f.Numeric) {
				continue
			}
			fv := model.FactValue{
				Value: f.Value,
				Kind:  fr.kind,
			}
			if f.Numeric {
				fv.Number = f.Number
			}
			if src, ok := g.source(f.SourceURL); ok {
				fv.Reliability = src.Reliability
				fv.SourceID = src.ID
			}
			if int(fv.Reliability) > best {
				best = int(fv.Reliability)
				bestValue = fv
			}
		}
		if best >= 0 {
			facts[fr.fact] = bestValue
		}
	}
	if len(facts) == 0 {
		return nil
	}
	return facts
}

// discoverClaims extracts a bounded set of claims from the evidence that
// produced findings, citing the source each came from
func (t *topic) discoverClaims(g *gathered, env *Env) []model.Claim {
	var claims []model.Claim
	seen := make(map[string]bool)
	now := env.now()
	for _, r := range g.results {
		src, ok := g.source(r.URL)
		if !ok {
			continue
		}
		for _, c := range env.Claims.ExtractText(r.Text(), string(t.kind)) {
			c.ID = claimID(t.kind, c.Text)
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			c.Citations = []string{src.ID}
			c.SourceDate = src.PublishedAt
			c.RecordedAt = now
			claims = append(claims, c)
			if len(claims) >= maxClaimsPerBranch {
				return claims
			}
		}
	}
	return claims
}

// newSource classifies a citation. Source IDs are deterministic so the same
// URL is the same source across branches.
func newSource(env *Env, sourceType model.SourceType, url, title string) model.Source {
	return model.Source{
		ID:          model.SourceID(url),
		Type:        sourceType,
		URL:         url,
		Title:       title,
		AccessedAt:  env.now(),
		Reliability: env.Classifier.ClassifySource(sourceType, url),
	}
}

func claimID(kind model.BranchKind, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(string(kind)+"\x00"+strings.ToLower(text))).String()
}

// mentions reports whether text refers to the entity: the full name, or its
// first distinctive word
func mentions(text, name string) bool {
	lower := strings.ToLower(text)
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	if strings.Contains(lower, name) {
		return true
	}
	for _, word := range strings.Fields(name) {
		if len(word) >= 4 {
			return strings.Contains(lower, word)
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
