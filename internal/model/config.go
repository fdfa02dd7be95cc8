package model

import "time"

// Config is the complete diligentia configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Search      SearchConfig      `yaml:"search"`
	LLM         LLMConfig         `yaml:"llm"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Store       StoreConfig       `yaml:"store"`
	Reliability ReliabilityConfig `yaml:"reliability"`
	Log         LogConfig         `yaml:"log"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig controls evidence page fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots"`
	RatePerSecond float64       `yaml:"rate_per_second"` // Per evidence host
	Burst         int           `yaml:"burst"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty"`
	NoProxy       string        `yaml:"no_proxy,omitempty"`
}

// SearchConfig configures the web-search collaborator
type SearchConfig struct {
	Endpoint      string        `yaml:"endpoint"` // JSON search API; empty disables search
	APIKey        string        `yaml:"api_key,omitempty"`
	MaxResults    int           `yaml:"max_results"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheDir      string        `yaml:"cache_dir,omitempty"`
}

// LLMConfig configures the optional inference collaborator
type LLMConfig struct {
	Provider       string `yaml:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	Timeout        int    `yaml:"timeout"` // seconds
	StrictEvidence bool   `yaml:"strict_evidence"`
	MaxTokens      int    `yaml:"max_tokens"`
	Summarize      bool   `yaml:"summarize"`
}

// ConcurrencyConfig bounds branch execution
type ConcurrencyConfig struct {
	BranchWorkers    int           `yaml:"branch_workers"`
	BranchTimeout    time.Duration `yaml:"branch_timeout"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
	BatchWorkers     int           `yaml:"batch_workers"`
	VerifyWorkers    int           `yaml:"verify_workers"`
	SnippetsPerClaim int           `yaml:"snippets_per_claim"`
}

// StoreConfig selects the durable store
type StoreConfig struct {
	Driver   string        `yaml:"driver"` // sqlite, memory
	Path     string        `yaml:"path"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // Memory store retention; 0 keeps records until exit
}

// ReliabilityConfig drives source reliability classification
type ReliabilityConfig struct {
	AuthoritativeDomains []string          `yaml:"authoritative_domains"`
	ReliableDomains      []string          `yaml:"reliable_domains"`
	DomainMap            map[string]string `yaml:"domain_map,omitempty"`
	PathPatterns         []PathPattern     `yaml:"path_patterns,omitempty"`
}

// PathPattern assigns a reliability to URLs whose path matches
type PathPattern struct {
	Pattern     string `yaml:"pattern"`
	Reliability string `yaml:"reliability"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose"`
	IncludeFooter bool `yaml:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       20 * time.Second,
			UserAgent:     "Diligentia/0.1 (+https://github.com/ppiankov/diligentia)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
			RatePerSecond: 1,
			Burst:         2,
		},
		Search: SearchConfig{
			MaxResults:    8,
			RatePerSecond: 2,
			Burst:         4,
			CacheTTL:      6 * time.Hour,
		},
		LLM: LLMConfig{
			Timeout:        30,
			StrictEvidence: true,
			MaxTokens:      1000,
		},
		Concurrency: ConcurrencyConfig{
			BranchWorkers:    6,
			BranchTimeout:    45 * time.Second,
			JobTimeout:       5 * time.Minute,
			BatchWorkers:     2,
			VerifyWorkers:    4,
			SnippetsPerClaim: 6,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Reliability: ReliabilityConfig{
			AuthoritativeDomains: []string{
				"sec.gov", "companieshouse.gov.uk", "find-and-update.company-information.service.gov.uk",
				"fca.org.uk", "finra.org", "uspto.gov", "patents.google.com", "europa.eu",
				"opencorporates.com", "courtlistener.com", "treasury.gov", "ofac.treasury.gov",
			},
			ReliableDomains: []string{
				"reuters.com", "bloomberg.com", "ft.com", "wsj.com", "crunchbase.com",
				"pitchbook.com", "techcrunch.com", "linkedin.com", "nytimes.com",
			},
			PathPatterns: []PathPattern{
				{Pattern: `/(filings?|edgar|registry|register)/`, Reliability: "authoritative"},
				{Pattern: `/(press|newsroom|investors?)/`, Reliability: "reliable"},
			},
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
