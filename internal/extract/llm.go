package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog"

	"github.com/ppiankov/diligentia/internal/llm"
)

const extractSystemPrompt = `You extract facts from text about a named subject. Reply with a single JSON object and nothing else.`

// LLMExtractor asks a language model for findings and falls back to pattern
// rules whenever the model is absent, errors, or returns nothing usable
type LLMExtractor struct {
	provider llm.Provider
	fallback Extractor
	logger   zerolog.Logger
	maxChars int
}

// NewLLMExtractor creates a model-backed extractor. A nil provider makes it
// behave exactly like the fallback.
func NewLLMExtractor(provider llm.Provider, fallback Extractor, logger zerolog.Logger) *LLMExtractor {
	if fallback == nil {
		fallback = NewPatternExtractor()
	}
	return &LLMExtractor{
		provider: provider,
		fallback: fallback,
		logger:   logger,
		maxChars: 6000,
	}
}

type llmFinding struct {
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Sentence string `json:"sentence"`
}

type llmFindings struct {
	Findings []llmFinding `json:"findings"`
}

// Extract implements Extractor
func (e *LLMExtractor) Extract(ctx context.Context, req ExtractRequest) ([]Finding, error) {
	if e.provider == nil || len(req.Rules) == 0 {
		return e.fallback.Extract(ctx, req)
	}

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System:      extractSystemPrompt,
		Prompt:      e.buildPrompt(req),
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Debug().Err(err).Msg("model extraction failed, using pattern rules")
		return e.fallback.Extract(ctx, req)
	}

	findings, err := parseFindings(resp.Text, req)
	if err != nil || len(findings) == 0 {
		e.logger.Debug().Err(err).Int("findings", len(findings)).Msg("model output unusable, using pattern rules")
		return e.fallback.Extract(ctx, req)
	}
	return findings, nil
}

func (e *LLMExtractor) buildPrompt(req ExtractRequest) string {
	text := truncateRunes(req.Text, e.maxChars)

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n\nLook for these facts (use exactly these names):\n", req.Subject)
	for _, r := range req.Rules {
		kind := "text"
		if r.Numeric {
			kind = "number"
		}
		fmt.Fprintf(&b, "- %s (%s)\n", r.Name, kind)
	}
	b.WriteString(`
Only report facts stated in the text. Quote the supporting sentence verbatim.
Format: {"findings": [{"name": "...", "value": "...", "sentence": "..."}]}

Text:
`)
	b.WriteString(text)
	return b.String()
}

// truncateRunes cuts s to at most n bytes without splitting a rune
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// parseFindings decodes model output defensively: the first JSON object is
// cut out of the reply and repaired before decoding. Unknown names and
// sentences absent from the source text are dropped.
func parseFindings(raw string, req ExtractRequest) ([]Finding, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	candidate := raw[start : end+1]

	var decoded llmFindings
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(candidate)
		if repairErr != nil {
			return nil, fmt.Errorf("repair model JSON: %w", repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
			return nil, fmt.Errorf("decode model JSON: %w", err)
		}
	}

	rules := make(map[string]Rule, len(req.Rules))
	for _, r := range req.Rules {
		rules[r.Name] = r
	}
	lowerText := strings.ToLower(req.Text)

	var findings []Finding
	for _, lf := range decoded.Findings {
		rule, ok := rules[lf.Name]
		if !ok {
			continue
		}
		sentence := strings.TrimSpace(lf.Sentence)
		if sentence == "" || !strings.Contains(lowerText, strings.ToLower(sentence)) {
			continue
		}

		f := Finding{
			Name:      rule.Name,
			Value:     strings.TrimSpace(fmt.Sprint(valueOrEmpty(lf.Value))),
			Sentence:  sentence,
			Heuristic: "model:" + rule.Name,
			SourceURL: req.SourceURL,
			Weight:    rule.Weight,
			Numeric:   rule.Numeric,
		}
		if rule.Numeric {
			n, ok := numberValue(lf.Value)
			if !ok {
				continue
			}
			f.Number = n
		}
		findings = append(findings, f)
	}

	return dedupeFindings(findings), nil
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		return ParseAmount(n)
	default:
		return 0, false
	}
}
