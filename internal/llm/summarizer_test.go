package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/diligentia/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *GenerateResponse
	err       error
	lastReq   GenerateRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func testReport() model.Report {
	return model.Report{
		Job: model.DiligenceJob{
			Entity: model.Entity{Name: "Acme Robotics", Kind: model.EntityCompany},
			Tier:   model.TierStandardDD,
		},
		Risk: model.RiskScore{Overall: 42},
		Branches: map[model.BranchKind]model.BranchResult{
			model.BranchEntityProfile: {
				Status:  model.BranchCompleted,
				Sources: []model.Source{{URL: "https://example.com/1"}, {URL: "https://example.com/2"}},
			},
			model.BranchTeam: {
				Status:  model.BranchFailed,
				Sources: []model.Source{{URL: "https://example.com/1"}},
			},
		},
		Synthesis: model.Synthesis{OverallRisk: model.RiskMedium, Verdict: model.RecommendHold},
		Contradictions: []model.Contradiction{{
			Field: "founded_year", SourceBranchA: model.BranchEntityProfile, ValueA: "2019",
			SourceBranchB: model.BranchFundingHistory, ValueB: "2021", Resolution: model.Unresolved,
		}},
	}
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil || summary != nil {
		t.Errorf("Expected nil summary and nil error when disabled, got %v, %v", summary, err)
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "mystery"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestSummarizer_GenerateSummary_ProviderUnavailable(t *testing.T) {
	summarizer := NewSummarizerWithProvider(&MockProvider{name: "test-provider"}, Config{StrictEvidence: true})

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary object with warnings")
	}
	if summary.Enabled {
		t.Error("Expected summary to be marked as disabled")
	}
	if len(summary.Warnings) == 0 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Expected warning about provider unavailability, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_Success(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &GenerateResponse{
			Text:       "Registry evidence at https://example.com/1 supports identity.",
			Model:      "test-model",
			TokensUsed: 150,
		},
	}
	summarizer := NewSummarizerWithProvider(provider, Config{Model: "test-model", StrictEvidence: true})

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !summary.Enabled || summary.Provider != "test-provider" || summary.Model != "test-model" {
		t.Errorf("Unexpected summary header: %+v", summary)
	}
	if summary.SummaryMD == "" {
		t.Error("Expected summary text")
	}
	if provider.lastReq.System == "" {
		t.Error("Expected system prompt to be sent")
	}

	joined := strings.Join(summary.Warnings, "\n")
	if !strings.Contains(joined, "Tokens used: 150") {
		t.Error("Expected warning about tokens used")
	}
	if !strings.Contains(joined, "Verified 1 citations") {
		t.Errorf("Expected citation verification note, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_CitationLeak(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response:  &GenerateResponse{Text: "See https://evil.example/made-up for details."},
	}
	summarizer := NewSummarizerWithProvider(provider, Config{StrictEvidence: true})

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Expected graceful degradation, got %v", err)
	}
	if summary.SummaryMD != "" {
		t.Error("Expected leaked summary to be discarded")
	}
	if !strings.Contains(strings.Join(summary.Warnings, " "), "CITATION LEAK") {
		t.Errorf("Expected citation leak warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_GenerateSummary_ProviderError(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		err:       errors.New("API rate limit exceeded"),
	}
	summarizer := NewSummarizerWithProvider(provider, Config{StrictEvidence: true})

	summary, err := summarizer.GenerateSummary(context.Background(), testReport())
	if err != nil {
		t.Errorf("Expected no error (graceful degradation), got %v", err)
	}
	if summary == nil || !summary.Enabled {
		t.Fatal("Expected enabled summary with error warning")
	}
	found := false
	for _, warning := range summary.Warnings {
		if strings.Contains(warning, "failed") && strings.Contains(warning, "rate limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected warning to mention error: %v", summary.Warnings)
	}
}

func TestEvidenceURLs_SortedUnique(t *testing.T) {
	urls := EvidenceURLs(testReport())
	if len(urls) != 2 || urls[0] != "https://example.com/1" || urls[1] != "https://example.com/2" {
		t.Errorf("Unexpected evidence URLs: %v", urls)
	}
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	report := testReport()
	prompt := BuildPrompt(report, EvidenceURLs(report))

	for _, element := range []string{
		"CRITICAL RULES",
		"MUST ONLY cite URLs from this allowed list",
		"https://example.com/1",
		"DO NOT infer, speculate",
		"Entity: Acme Robotics (company)",
		"Tier: STANDARD_DD",
		"Risk Score: 42/100",
		"Verdict: HOLD",
		"1 completed, 1 failed, 0 skipped",
		"founded_year",
	} {
		if !strings.Contains(prompt, element) {
			t.Errorf("Expected prompt to contain '%s'", element)
		}
	}
}

func TestBuildPrompt_NoEvidence(t *testing.T) {
	prompt := BuildPrompt(model.Report{}, nil)
	if !strings.Contains(prompt, "No evidence URLs available") {
		t.Error("Expected message about no evidence URLs")
	}
}

func TestJoinURLs_Truncates(t *testing.T) {
	urls := make([]string, 25)
	for i := range urls {
		urls[i] = "https://example.com/" + string(rune('a'+i))
	}
	result := joinURLs(urls)
	if !strings.Contains(result, "and 5 more URLs") {
		t.Error("Expected truncation message for many URLs")
	}
	if !strings.Contains(result, urls[0]) {
		t.Error("Expected first URL to be listed")
	}
}

func TestCheckCitations(t *testing.T) {
	allowed := []string{"https://a.example/x"}

	cited, err := CheckCitations("See https://a.example/x.", allowed)
	if err != nil || len(cited) != 1 {
		t.Errorf("Expected allowed citation, got %v %v", cited, err)
	}
	if _, err := CheckCitations("See (https://b.example/y)", allowed); err == nil {
		t.Error("Expected leak error for disallowed URL")
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}
	if RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}) != "" {
		t.Error("Expected empty markdown when disabled")
	}

	md := RenderSeparateMarkdown(&model.LLMSummary{
		Enabled:        true,
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		StrictEvidence: true,
		SummaryMD:      "This is the generated summary content.",
		Warnings:       []string{"Tokens used: 150"},
	})
	for _, section := range []string{"# LLM Summary", "GENERATED CONTENT", "openai", "gpt-4o-mini", "Strict Evidence Mode", "determined independently", "## Notes", "Tokens used: 150"} {
		if !strings.Contains(md, section) {
			t.Errorf("Expected markdown to contain '%s'", section)
		}
	}

	empty := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "p"})
	if !strings.Contains(empty, "No summary generated") {
		t.Error("Expected message about no summary")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Provider != "" {
		t.Errorf("Expected provider to be empty (disabled), got '%s'", config.Provider)
	}
	if !config.StrictEvidence {
		t.Error("Expected strict evidence to be enabled by default")
	}
	if config.Timeout <= 0 || config.MaxTokens <= 0 {
		t.Error("Expected positive timeout and max tokens")
	}
}
