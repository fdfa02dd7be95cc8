// Package branch defines the unit of research work. Every branch kind
// implements the same Branch contract; the scheduler never inspects the
// kind-specific findings payload.
package branch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/fetch"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
	"github.com/ppiankov/diligentia/internal/validate"
)

// Branch is one independent research task
type Branch interface {
	Kind() model.BranchKind
	Class() model.BranchClass
	Execute(ctx context.Context, entity model.Entity, env *Env) (Outcome, error)
}

// Outcome is what a branch produced. The scheduler turns it into a
// model.BranchResult.
type Outcome struct {
	Findings    any
	Facts       map[string]model.FactValue
	Sources     []model.Source
	Confidence  float64
	Claims      []model.Claim
	RiskSignals []model.RiskSignal
	StopRules   []string
	Notes       []string
}

// PageFetcher fetches evidence pages
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// LivenessChecker checks that URLs resolve
type LivenessChecker interface {
	Check(ctx context.Context, urls []string) []validate.Liveness
}

// Env is the per-job context handed to every branch. It is read-only for
// branches; nothing in it is shared mutable state.
type Env struct {
	Search     search.Searcher
	SearchMode search.Mode
	MaxResults int
	Extractor  extract.Extractor
	Claims     *extract.ClaimExtractor
	Fetcher    PageFetcher     // nil disables page fetches
	Liveness   LivenessChecker // nil disables liveness checks
	Classifier *validate.ReliabilityClassifier
	Logger     zerolog.Logger
	Now        func() time.Time

	Funding     model.FundingSignals
	Complexity  model.ComplexitySignals
	Playbook    model.PlaybookSignals
	KnownClaims []model.Claim
}

// WithDefaults fills unset collaborators with offline implementations
func (e *Env) WithDefaults() *Env {
	out := *e
	if out.Search == nil {
		out.Search = search.None{}
	}
	if out.SearchMode == "" {
		out.SearchMode = search.ModeBalanced
	}
	if out.MaxResults <= 0 {
		out.MaxResults = 8
	}
	if out.Extractor == nil {
		out.Extractor = extract.NewPatternExtractor()
	}
	if out.Claims == nil {
		out.Claims = extract.NewClaimExtractor()
	}
	if out.Classifier == nil {
		out.Classifier = validate.NewReliabilityClassifier(nil)
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}
