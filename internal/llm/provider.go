package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnavailable is returned when no inference provider is configured or
// the configured one cannot be reached. Callers fall back to pattern rules.
var ErrUnavailable = errors.New("inference provider unavailable")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate completes a prompt. Output is untrusted free text.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one completion
type GenerateRequest struct {
	// Prompt is the user message
	Prompt string

	// System is an optional system instruction
	System string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length (0 = configured default)
	MaxTokens int

	// Temperature controls sampling (0 = provider default of 0.3)
	Temperature float64
}

// GenerateResponse contains the provider output
type GenerateResponse struct {
	// Text is the generated text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence enforces the URL allowlist on summaries
	StrictEvidence bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      1000,
	}
}

const defaultTemperature = 0.3

// resolve fills request defaults from the provider config
func (c Config) resolve(req GenerateRequest, fallbackModel string) (model string, maxTokens int, temperature float64) {
	model = req.Model
	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = fallbackModel
	}
	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}
	temperature = req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	return model, maxTokens, temperature
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]>"']+`)

// extractURLs extracts all URLs from text
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, url := range matches {
		url = strings.TrimRight(url, ".,;:!?")
		if !seen[url] {
			seen[url] = true
			unique = append(unique, url)
		}
	}
	return unique
}

// CheckCitations returns the URLs cited in text and an error naming the
// first one not on the allowlist
func CheckCitations(text string, allowed []string) ([]string, error) {
	cited := extractURLs(text)
	allow := make(map[string]bool, len(allowed))
	for _, u := range allowed {
		allow[u] = true
	}
	for _, u := range cited {
		if !allow[u] {
			return cited, fmt.Errorf("CITATION LEAK: LLM cited disallowed URL: %s", u)
		}
	}
	return cited, nil
}
