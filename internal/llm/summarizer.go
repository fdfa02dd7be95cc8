package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

const summarySystemPrompt = "You summarize due-diligence reports with strict adherence to evidence constraints. You describe evidence; you never decide the verdict."

// Summarizer produces an optional narrative of a finished report.
// CRITICAL: the narrative never feeds back into the verdict.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer. A disabled provider yields a
// summarizer whose GenerateSummary returns nil.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// NewSummarizerWithProvider wraps an existing provider
func NewSummarizerWithProvider(provider Provider, config Config) *Summarizer {
	return &Summarizer{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary asks the provider for a narrative. Provider failures are
// reported as warnings, never as errors, so a run is not failed by its summary.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Enabled:        true,
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictEvidence: s.config.StrictEvidence,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM provider %s is not available", s.provider.Name()))
		return summary, nil
	}

	evidenceURLs := EvidenceURLs(report)
	resp, err := s.provider.Generate(ctx, GenerateRequest{
		Prompt:    BuildPrompt(report, evidenceURLs),
		System:    summarySystemPrompt,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Summary generation failed: %v", err))
		return summary, nil
	}
	if resp.Model != "" {
		summary.Model = resp.Model
	}

	cited, err := CheckCitations(resp.Text, evidenceURLs)
	if err != nil && s.config.StrictEvidence {
		summary.Warnings = append(summary.Warnings, err.Error(), "Summary discarded: strict evidence mode")
		return summary, nil
	}

	summary.SummaryMD = resp.Text
	summary.Warnings = append(summary.Warnings,
		fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		fmt.Sprintf("Verified %d citations against %d allowed URLs", len(cited), len(evidenceURLs)),
	)
	return summary, nil
}

// EvidenceURLs collects the sorted, unique source URLs of a report. This is
// the strict allowlist a summary may cite.
func EvidenceURLs(report model.Report) []string {
	seen := make(map[string]bool)
	for _, result := range report.Branches {
		for _, src := range result.Sources {
			if src.URL != "" {
				seen[src.URL] = true
			}
		}
	}
	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// BuildPrompt constructs the summarization prompt with strict evidence rules
func BuildPrompt(report model.Report, evidenceURLs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are summarizing a due-diligence report. The verdict below was computed by rules; do not second-guess it.

CRITICAL RULES:
1. You MUST ONLY cite URLs from this allowed list:
%s

2. DO NOT infer, speculate, or cite external sources beyond this list.
3. If evidence is insufficient or missing, state that explicitly.
4. Describe EVIDENCE QUALITY and open issues, not your own opinion of the entity.

Report Summary:
- Entity: %s (%s)
- Tier: %s
- Risk Score: %d/100
- Overall Risk: %s
- Verdict: %s
- Branches: %d completed, %d failed, %d skipped
- Claims: %d (%d disputed, %d unverifiable), integrity %s
`, joinURLs(evidenceURLs),
		report.Job.Entity.Name, report.Job.Entity.Kind,
		report.Job.Tier,
		report.Risk.Overall,
		report.Synthesis.OverallRisk,
		report.Synthesis.Verdict,
		countBranches(report, model.BranchCompleted), countBranches(report, model.BranchFailed), countBranches(report, model.BranchSkipped),
		len(report.Ledger.Claims), report.Ledger.ContradictionCount, report.Ledger.UnverifiableCount, report.Ledger.OverallIntegrity)

	if len(report.Synthesis.StopRulesTriggered) > 0 {
		fmt.Fprintf(&b, "- Stop rules: %s\n", strings.Join(report.Synthesis.StopRulesTriggered, ", "))
	}
	if len(report.Contradictions) > 0 {
		b.WriteString("\nDiscrepancies:\n")
		for i, c := range report.Contradictions {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %s says %q, %s says %q (%s)\n", c.Field, c.SourceBranchA, c.ValueA, c.SourceBranchB, c.ValueB, c.Resolution)
		}
	}

	b.WriteString("\nProvide a 3-4 sentence summary focusing on evidence quality and open issues.")
	return b.String()
}

// RenderSeparateMarkdown renders the summary as its own clearly labelled document
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** The verdict and risk level were determined independently of this text.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Evidence Mode**: %t\n\n", summary.StrictEvidence)

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(No evidence URLs available)"
	}
	var b strings.Builder
	for i, url := range urls {
		if i >= 20 { // Limit to avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", url)
	}
	return b.String()
}

func countBranches(report model.Report, status model.BranchStatus) int {
	count := 0
	for _, r := range report.Branches {
		if r.Status == status {
			count++
		}
	}
	return count
}
