package orchestrator

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/fetch"
	"github.com/ppiankov/diligentia/internal/ledger"
	"github.com/ppiankov/diligentia/internal/llm"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/search"
	"github.com/ppiankov/diligentia/internal/store"
	"github.com/ppiankov/diligentia/internal/validate"
	"github.com/ppiankov/diligentia/internal/worker"
)

// NewFromConfig wires the live collaborators described by cfg. The caller
// owns the returned store and must close it.
func NewFromConfig(cfg *model.Config, mode search.Mode, logger zerolog.Logger) (*Orchestrator, store.Store, error) {
	// Evidence hosts share the polite default; the search API gets its own budget
	limiter := worker.NewLimiter(cfg.HTTP.RatePerSecond, cfg.HTTP.Burst)
	if u, err := url.Parse(cfg.Search.Endpoint); err == nil && u.Hostname() != "" {
		limiter.SetHostRate(u.Hostname(), cfg.Search.RatePerSecond, cfg.Search.Burst)
	}
	classifier := validate.NewReliabilityClassifier(&cfg.Reliability)
	searcher := search.New(cfg.Search, cfg.HTTP, limiter)

	var extractor extract.Extractor = extract.NewPatternExtractor()
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		llmCfg := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
		provider, err := llm.NewProvider(llmCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("llm provider: %w", err)
		}
		if provider != nil {
			extractor = extract.NewLLMExtractor(provider, extractor, logger)
			if cfg.LLM.Summarize {
				summarizer = llm.NewSummarizerWithProvider(provider, llmCfg)
			}
		}
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	gatherer := ledger.NewSearchGatherer(searcher, extractor, mode, cfg.Concurrency.SnippetsPerClaim)
	deps := Deps{
		Search:     searcher,
		SearchMode: mode,
		Extractor:  extractor,
		Fetcher:    fetch.NewFetcher(cfg.HTTP, limiter),
		Liveness:   validate.NewLivenessChecker(cfg.HTTP.Timeout, cfg.Concurrency.VerifyWorkers*2, classifier, cfg.HTTP),
		Classifier: classifier,
		Store:      st,
		Verifier:   ledger.NewVerifier(gatherer, cfg.Concurrency.VerifyWorkers, logger),
		Summarizer: summarizer,
	}
	return New(cfg, deps, logger), st, nil
}
