// Package extract turns untrusted text (search snippets, fetched pages,
// model output) into typed findings. Extraction is heuristic: rules match
// keywords and patterns per sentence, and an optional model-backed extractor
// falls back to the same rules when inference is unavailable.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Rule describes one finding a branch looks for
type Rule struct {
	Name     string         // Finding name, e.g. "founded_year"
	Keywords []string       // Lower-case; any one must occur in the sentence (none = always)
	Pattern  *regexp.Regexp // Optional; the first submatch (or whole match) becomes the value
	Numeric  bool           // Parse the value as an amount ("$12.5M", "1,200")
	Weight   float64        // Confidence increment the finding is worth
}

// Finding is one extracted fact
type Finding struct {
	Name      string  `json:"name"`
	Value     string  `json:"value,omitempty"`
	Number    float64 `json:"number,omitempty"`
	Numeric   bool    `json:"numeric,omitempty"`
	Sentence  string  `json:"sentence"`
	Heuristic string  `json:"heuristic"`
	SourceURL string  `json:"source_url,omitempty"`
	Weight    float64 `json:"weight"`
}

// ExtractRequest is the input to an extractor
type ExtractRequest struct {
	Text      string
	SourceURL string
	Subject   string // Entity name, used to prefer sentences about the subject
	Rules     []Rule
}

// Extractor turns raw text into typed findings
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]Finding, error)
}

// PatternExtractor applies rules sentence by sentence
type PatternExtractor struct{}

// NewPatternExtractor creates the rule-based extractor
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract implements Extractor. It never fails on malformed text.
func (e *PatternExtractor) Extract(ctx context.Context, req ExtractRequest) ([]Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []Finding
	for _, sentence := range splitSentences(req.Text) {
		lower := strings.ToLower(sentence)
		for _, rule := range req.Rules {
			keyword, ok := matchKeyword(lower, rule.Keywords)
			if !ok {
				continue
			}

			f := Finding{
				Name:      rule.Name,
				Sentence:  sentence,
				Heuristic: "keyword:" + keyword,
				SourceURL: req.SourceURL,
				Weight:    rule.Weight,
				Numeric:   rule.Numeric,
			}
			if rule.Pattern != nil {
				m := rule.Pattern.FindStringSubmatch(sentence)
				if m == nil {
					continue
				}
				f.Value = strings.TrimSpace(m[len(m)-1])
				f.Heuristic = "pattern:" + rule.Name
			}
			if rule.Numeric {
				n, ok := ParseAmount(f.Value)
				if !ok {
					continue
				}
				f.Number = n
			}
			findings = append(findings, f)
		}
	}

	return dedupeFindings(findings), nil
}

func matchKeyword(lower string, keywords []string) (string, bool) {
	if len(keywords) == 0 {
		return "*", true
	}
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}

// dedupeFindings keeps the first finding per name and value (or sentence
// when the rule has no value)
func dedupeFindings(findings []Finding) []Finding {
	seen := make(map[string]bool)
	var unique []Finding

	for _, f := range findings {
		key := f.Name + "\x00" + strings.ToLower(f.Value)
		if f.Value == "" {
			key += "\x00" + strings.ToLower(f.Sentence)
		}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, f)
		}
	}

	return unique
}

var amountPattern = regexp.MustCompile(`(?i)^\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*(k|thousand|m|mm|million|b|bn|billion)?\b`)

// ParseAmount parses "$12.5M", "3 billion", "1,200" and similar amounts
func ParseAmount(s string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		n *= 1e3
	case "m", "mm", "million":
		n *= 1e6
	case "b", "bn", "billion":
		n *= 1e9
	}
	return n, true
}

// Names returns the distinct finding names, in first-seen order
func Names(findings []Finding) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range findings {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	return names
}

// First returns the first finding with the given name
func First(findings []Finding, name string) (Finding, bool) {
	for _, f := range findings {
		if f.Name == name {
			return f, true
		}
	}
	return Finding{}, false
}

// Count returns how many findings carry the given name
func Count(findings []Finding, name string) int {
	n := 0
	for _, f := range findings {
		if f.Name == name {
			n++
		}
	}
	return n
}
