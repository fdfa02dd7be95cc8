// Package render writes diligence reports as JSON and Markdown and prints a
// short terminal summary
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

// Renderer formats reports
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the human-readable report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// RenderLLMMarkdown writes an already rendered narrative next to the report
func (r *Renderer) RenderLLMMarkdown(markdown string, path string) error {
	return writeFile(path, []byte(markdown))
}

// LLMPath derives the narrative path from the Markdown report path
func LLMPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, ".md") + ".llm.md"
}

// Markdown renders the report body
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	s := report.Synthesis
	job := report.Job

	fmt.Fprintf(&b, "# Due Diligence: %s\n\n", job.Entity.Name)
	fmt.Fprintf(&b, "- **Kind:** %s\n", job.Entity.Kind)
	if job.Entity.Website != "" {
		fmt.Fprintf(&b, "- **Website:** %s\n", job.Entity.Website)
	}
	fmt.Fprintf(&b, "- **Job:** `%s` (%s)\n", job.ID, job.Status)
	fmt.Fprintf(&b, "- **Tier:** %s\n", job.Tier)
	fmt.Fprintf(&b, "- **Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Verdict\n\n")
	fmt.Fprintf(&b, "**%s** | risk **%s** | confidence %.2f | %d/%d branches completed\n\n",
		s.Verdict, s.OverallRisk, s.Confidence, s.CompletedBranches, s.TotalBranches)
	if s.ShouldDisengage {
		b.WriteString("> **DISENGAGE.** ")
	} else {
		b.WriteString("> ")
	}
	b.WriteString(s.Recommendation + "\n\n")
	if job.Error != "" {
		fmt.Fprintf(&b, "Job error: `%s`\n\n", job.Error)
	}

	if len(s.StopRulesTriggered) > 0 {
		b.WriteString("### Stop rules triggered\n\n")
		for _, rule := range s.StopRulesTriggered {
			fmt.Fprintf(&b, "- `%s`\n", rule)
		}
		b.WriteString("\n")
	}
	if len(s.Rationale) > 0 {
		b.WriteString("### Rationale\n\n")
		for _, line := range s.Rationale {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	r.writeRisk(&b, report.Risk)
	r.writeBranches(&b, report.Branches)
	r.writeContradictions(&b, report.Contradictions)
	r.writeLedger(&b, report.Ledger)

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Verdicts are computed from gathered evidence only. An LLM narrative, when present, is rendered separately and never changes them._\n")
	}
	return b.String()
}

func (r *Renderer) writeRisk(b *strings.Builder, risk model.RiskScore) {
	b.WriteString("## Risk Score\n\n")
	fmt.Fprintf(b, "Overall **%d**/100. Funding tier %s, score tier %s, recommended %s.\n\n",
		risk.Overall, risk.FundingTier, risk.ScoreTier, risk.RecommendedTier)

	b.WriteString("| Category | Score |\n|---|---|\n")
	for _, c := range model.RiskCategories {
		fmt.Fprintf(b, "| %s | %d |\n", c, risk.Breakdown[c])
	}
	b.WriteString("\n")

	if len(risk.EscalationTriggers) > 0 {
		b.WriteString("**Escalation triggers:** ")
		quoted := make([]string, len(risk.EscalationTriggers))
		for i, t := range risk.EscalationTriggers {
			quoted[i] = "`" + t + "`"
		}
		b.WriteString(strings.Join(quoted, ", ") + "\n\n")
	}

	if len(risk.Signals) > 0 {
		signals := append([]model.RiskSignal(nil), risk.Signals...)
		sort.SliceStable(signals, func(i, j int) bool { return signals[i].Severity > signals[j].Severity })
		b.WriteString("| Signal | Category | Severity | Detail |\n|---|---|---|---|\n")
		for _, s := range signals {
			fmt.Fprintf(b, "| %s | %s | %d | %s |\n", s.Name, s.Category, s.Severity, escapeCell(s.Detail))
		}
		b.WriteString("\n")
	}
}

func (r *Renderer) writeBranches(b *strings.Builder, branches map[model.BranchKind]model.BranchResult) {
	if len(branches) == 0 {
		return
	}
	b.WriteString("## Branches\n\n")
	b.WriteString("| Branch | Class | Status | Confidence | Sources | Claims |\n|---|---|---|---|---|---|\n")
	for _, kind := range model.SortedKinds(branches) {
		res := branches[kind]
		fmt.Fprintf(b, "| %s | %s | %s | %.2f | %d | %d |\n",
			kind, res.Class, res.Status, res.Confidence, len(res.Sources), len(res.Claims))
	}
	b.WriteString("\n")

	for _, kind := range model.SortedKinds(branches) {
		res := branches[kind]
		if len(res.Notes) == 0 && res.Error == "" && len(res.Sources) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s\n\n", kind)
		if res.Error != "" {
			fmt.Fprintf(b, "Error: `%s`\n\n", res.Error)
		}
		for _, note := range res.Notes {
			fmt.Fprintf(b, "- %s\n", note)
		}
		for _, src := range res.Sources {
			fmt.Fprintf(b, "- [%s](%s) (%s)\n", linkTitle(src), src.URL, src.Reliability)
		}
		b.WriteString("\n")
	}
}

func (r *Renderer) writeContradictions(b *strings.Builder, contradictions []model.Contradiction) {
	if len(contradictions) == 0 {
		return
	}
	b.WriteString("## Cross-check\n\n")
	b.WriteString("| Field | Branch A | Value A | Branch B | Value B | Resolution |\n|---|---|---|---|---|---|\n")
	for _, c := range contradictions {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s |\n",
			c.Field, c.SourceBranchA, escapeCell(c.ValueA), c.SourceBranchB, escapeCell(c.ValueB), c.Resolution)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeLedger(b *strings.Builder, snap model.LedgerSnapshot) {
	b.WriteString("## Claim Ledger\n\n")
	fmt.Fprintf(b, "Integrity **%s**: %d claims, %d disputed, %d unverifiable.\n\n",
		snap.OverallIntegrity, len(snap.Claims), snap.ContradictionCount, snap.UnverifiableCount)
	if len(snap.Claims) == 0 {
		return
	}
	b.WriteString("| Claim | Type | Verdict | Confidence | Freshness | From |\n|---|---|---|---|---|---|\n")
	for _, c := range snap.Claims {
		fmt.Fprintf(b, "| %s | %s | %s | %.2f | %s | %s |\n",
			escapeCell(c.Text), c.Type, c.Verdict.Public(), c.Confidence, c.Freshness, c.ExtractedFrom)
	}
	b.WriteString("\n")
}

// Summary writes a plain one-screen summary
func (r *Renderer) Summary(w io.Writer, report *model.Report) {
	s := report.Synthesis
	fmt.Fprintf(w, "%s [%s] %s\n", report.Job.Entity.Name, report.Job.Tier, verdictStyle(s).Render(string(s.Verdict)))
	fmt.Fprintf(w, "  risk:        %s (score %d)\n", riskStyle(s.OverallRisk).Render(string(s.OverallRisk)), report.Risk.Overall)
	fmt.Fprintf(w, "  confidence:  %.2f\n", s.Confidence)
	fmt.Fprintf(w, "  branches:    %d/%d completed\n", s.CompletedBranches, s.TotalBranches)
	fmt.Fprintf(w, "  claims:      %d (%s integrity)\n", len(report.Ledger.Claims), report.Ledger.OverallIntegrity)
	if len(s.StopRulesTriggered) > 0 {
		fmt.Fprintf(w, "  stop rules:  %s\n", alertStyle.Render(strings.Join(s.StopRulesTriggered, ", ")))
	}
	fmt.Fprintf(w, "  %s\n", s.Recommendation)
}

// QuickSummary writes the result of a quick check
func (r *Renderer) QuickSummary(w io.Writer, res model.QuickResult) {
	status := passStyle.Render("PASS")
	if !res.Pass {
		status = alertStyle.Render("FAIL")
	}
	fmt.Fprintf(w, "%s %s\n", res.Entity.Name, status)
	fmt.Fprintf(w, "  risk:   %s (score %d, tier %s)\n", riskStyle(res.OverallRisk).Render(string(res.OverallRisk)), res.Risk.Overall, res.Risk.RecommendedTier)
	for _, issue := range res.CriticalIssues {
		fmt.Fprintf(w, "  - %s\n", alertStyle.Render(issue))
	}
}

func linkTitle(src model.Source) string {
	if src.Title != "" {
		return escapeCell(src.Title)
	}
	return src.URL
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
