package model

import "time"

// Report is the complete output of a diligence run
type Report struct {
	Job            DiligenceJob                `json:"job"`
	Risk           RiskScore                   `json:"risk"`
	Branches       map[BranchKind]BranchResult `json:"branches"`
	Ledger         LedgerSnapshot              `json:"ledger"`
	Contradictions []Contradiction             `json:"contradictions"`
	Synthesis      Synthesis                   `json:"synthesis"`
	GeneratedAt    time.Time                   `json:"generated_at"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional narrative (separate, never affects the verdict)
}

// QuickResult is the stop-rules-only answer of a quick check
type QuickResult struct {
	Entity         Entity    `json:"entity"`
	Pass           bool      `json:"pass"`
	OverallRisk    RiskLevel `json:"overall_risk"`
	CriticalIssues []string  `json:"critical_issues"`
	Risk           RiskScore `json:"risk"`
}

// LLMSummary contains an optional LLM-generated narrative of a synthesis
// CRITICAL: This never affects the verdict and is clearly separated
type LLMSummary struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"`   // openai, anthropic, ollama
	Model          string   `json:"model,omitempty"`      // Model name
	StrictEvidence bool     `json:"strict_evidence"`      // Whether citation enforcement was enabled
	SummaryMD      string   `json:"summary_md,omitempty"` // Markdown summary
	Warnings       []string `json:"warnings,omitempty"`   // Any issues (e.g., citation leaks detected)
}
