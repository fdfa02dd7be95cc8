// Package orchestrator owns the diligence job state machine. It selects the
// tier and branches, runs them, feeds the claim ledger, reconciles the
// results and persists the report.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/diligentia/internal/branch"
	"github.com/ppiankov/diligentia/internal/extract"
	"github.com/ppiankov/diligentia/internal/ledger"
	"github.com/ppiankov/diligentia/internal/llm"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/scheduler"
	"github.com/ppiankov/diligentia/internal/search"
	"github.com/ppiankov/diligentia/internal/store"
	"github.com/ppiankov/diligentia/internal/synth"
	"github.com/ppiankov/diligentia/internal/tier"
	"github.com/ppiankov/diligentia/internal/validate"
)

// Deps are the collaborators of a run. Nil fields fall back to offline
// defaults: no search, pattern extraction, no page fetches, a memory store.
type Deps struct {
	Search     search.Searcher
	SearchMode search.Mode
	Extractor  extract.Extractor
	Fetcher    branch.PageFetcher
	Liveness   branch.LivenessChecker
	Classifier *validate.ReliabilityClassifier
	Store      store.Store
	Verifier   *ledger.Verifier
	Summarizer *llm.Summarizer
	Registry   *branch.Registry
}

// Orchestrator runs diligence jobs
type Orchestrator struct {
	deps   Deps
	cfg    *model.Config
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates an orchestrator
func New(cfg *model.Config, deps Deps, logger zerolog.Logger) *Orchestrator {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if deps.Search == nil {
		deps.Search = search.None{}
	}
	if deps.SearchMode == "" {
		deps.SearchMode = search.ModeBalanced
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewPatternExtractor()
	}
	if deps.Classifier == nil {
		deps.Classifier = validate.NewReliabilityClassifier(&cfg.Reliability)
	}
	if deps.Store == nil {
		deps.Store, _ = store.Open(model.StoreConfig{Driver: "memory"})
	}
	if deps.Verifier == nil {
		gatherer := ledger.NewSearchGatherer(deps.Search, deps.Extractor, deps.SearchMode, cfg.Concurrency.SnippetsPerClaim)
		deps.Verifier = ledger.NewVerifier(gatherer, cfg.Concurrency.VerifyWorkers, logger)
	}
	if deps.Registry == nil {
		deps.Registry = branch.Default()
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// run is the mutable state of one job
type run struct {
	job     *model.DiligenceJob
	req     Request
	risk    model.RiskScore
	results map[model.BranchKind]model.BranchResult
	ledger  *ledger.Ledger
	log     zerolog.Logger
}

// RunDiligence executes a full job. Invalid input returns ErrInvalidRequest
// and schedules nothing. An orchestrator fault marks the job failed and
// returns the error together with a best-effort report.
func (o *Orchestrator) RunDiligence(ctx context.Context, req Request) (*model.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if o.cfg.Concurrency.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Concurrency.JobTimeout)
		defer cancel()
	}

	job := model.NewJob(o.newID(), req.Entity, o.now())
	r := &run{
		job:     job,
		req:     req,
		results: map[model.BranchKind]model.BranchResult{},
		ledger:  ledger.New(job.ID, o.now),
		log:     o.logger.With().Str("job_id", job.ID).Str("entity", req.Entity.Name).Logger(),
	}

	if err := o.deps.Store.SaveJob(ctx, *job); err != nil {
		return o.fault(r, fmt.Errorf("create job: %w", err))
	}

	if err := o.analyze(r); err != nil {
		return o.fault(r, err)
	}
	branches, err := o.deps.Registry.Build(job.ActiveBranches)
	if err != nil {
		return o.fault(r, fmt.Errorf("build branches: %w", err))
	}

	if err := o.advance(ctx, r, model.JobExecuting); err != nil {
		return o.fault(r, err)
	}
	o.execute(ctx, r, branches)
	if err := ctx.Err(); err != nil {
		return o.fault(r, fmt.Errorf("job interrupted: %w", err))
	}

	if err := o.advance(ctx, r, model.JobCrossChecking); err != nil {
		return o.fault(r, err)
	}
	report := o.reconcile(r)

	if err := o.advance(ctx, r, model.JobSynthesizing); err != nil {
		return o.fault(r, err)
	}
	if err := o.persistResults(ctx, r, report); err != nil {
		return o.fault(r, err)
	}
	if err := o.advance(ctx, r, model.JobCompleted); err != nil {
		return o.fault(r, err)
	}

	report.Job = *r.job
	o.summarize(ctx, r, report)

	r.log.Info().
		Str("tier", r.job.Tier.String()).
		Str("risk", string(report.Synthesis.OverallRisk)).
		Str("verdict", string(report.Synthesis.Verdict)).
		Bool("disengage", report.Synthesis.ShouldDisengage).
		Int("claims", len(report.Ledger.Claims)).
		Msg("diligence completed")
	return report, nil
}

// Investigate runs default diligence on an entity for batch processing
func (o *Orchestrator) Investigate(ctx context.Context, entity model.Entity) (*model.Report, error) {
	return o.RunDiligence(ctx, Request{Entity: entity})
}

// analyze selects the tier and the branch set from the request signals
func (o *Orchestrator) analyze(r *run) error {
	if err := r.job.Advance(model.JobAnalyzing, o.now()); err != nil {
		return err
	}
	selected, risk := tier.SelectTier(r.req.Funding, r.req.Signals)
	r.job.Tier = selected
	r.risk = risk
	r.job.ActiveBranches = branch.Select(branch.Selection{
		Tier:              selected,
		Complexity:        r.req.Complexity,
		Playbook:          r.req.Playbook,
		FundingRequest:    r.req.FundingRequest,
		QuickVerification: r.req.QuickVerification,
		HasWebsite:        r.req.Entity.Website != "",
	})
	r.log.Info().
		Str("tier", selected.String()).
		Int("risk_score", risk.Overall).
		Strs("triggers", risk.EscalationTriggers).
		Int("branches", len(r.job.ActiveBranches)).
		Msg("tier selected")
	return nil
}

// execute runs the branches and verifies known claims concurrently. Branch
// claims are verified as each branch finishes and enter the ledger only once
// the branch has completed.
func (o *Orchestrator) execute(ctx context.Context, r *run, branches []branch.Branch) {
	env := (&branch.Env{
		Search:      o.deps.Search,
		SearchMode:  o.deps.SearchMode,
		MaxResults:  o.cfg.Search.MaxResults,
		Extractor:   o.deps.Extractor,
		Fetcher:     o.deps.Fetcher,
		Liveness:    o.deps.Liveness,
		Classifier:  o.deps.Classifier,
		Logger:      r.log,
		Now:         o.now,
		Funding:     r.req.Funding,
		Complexity:  r.req.Complexity,
		Playbook:    r.req.Playbook,
		KnownClaims: r.req.KnownClaims,
	}).WithDefaults()

	sched := scheduler.New(scheduler.Config{
		Workers:       o.cfg.Concurrency.BranchWorkers,
		BranchTimeout: o.cfg.Concurrency.BranchTimeout,
	}, r.log).
		WithObserver(func(kind model.BranchKind, status model.BranchStatus) {
			r.log.Debug().Str("branch", string(kind)).Str("status", string(status)).Msg("branch status")
		}).
		WithVerifier(func(ctx context.Context, result *model.BranchResult) {
			result.Claims = o.deps.Verifier.VerifyAll(ctx, r.req.Entity.Name, result.Claims)
		})

	var g errgroup.Group
	g.Go(func() error {
		r.results = sched.Run(ctx, r.req.Entity, branches, env)
		return nil
	})
	if len(r.req.KnownClaims) > 0 {
		g.Go(func() error {
			known := make([]model.Claim, len(r.req.KnownClaims))
			for i, c := range r.req.KnownClaims {
				if c.ExtractedFrom == "" {
					c.ExtractedFrom = "caller"
				}
				known[i] = c
			}
			r.ledger.AppendAll(o.deps.Verifier.VerifyAll(ctx, r.req.Entity.Name, known))
			return nil
		})
	}
	_ = g.Wait()

	for _, kind := range model.SortedKinds(r.results) {
		res := r.results[kind]
		if res.Status != model.BranchCompleted || len(res.Claims) == 0 {
			continue
		}
		res.Claims = r.ledger.AppendAll(res.Claims)
		r.results[kind] = res
	}
	r.job.RecordBranches(r.results)
}

// reconcile cross-checks the branches, recomputes risk, evaluates stop
// rules and synthesizes. It never fails.
func (o *Orchestrator) reconcile(r *run) *model.Report {
	contradictions := synth.CrossCheck(r.results)
	contradictionSignals := synth.ContradictionSignals(contradictions)

	signals := append([]model.RiskSignal{}, r.req.Signals...)
	for _, kind := range model.SortedKinds(r.results) {
		if res := r.results[kind]; res.Status == model.BranchCompleted {
			signals = append(signals, res.RiskSignals...)
		}
	}
	signals = append(signals, contradictionSignals...)
	recommended, risk := tier.SelectTier(r.req.Funding, signals)
	r.risk = risk
	if recommended > r.job.Tier {
		r.log.Warn().
			Str("tier", r.job.Tier.String()).
			Str("recommended", recommended.String()).
			Msg("findings recommend a deeper tier")
	}

	snap := r.ledger.Snapshot()
	stops := synth.EvaluateStopRules(synth.StopInput{
		Signals: append(append([]model.RiskSignal{}, r.req.Signals...), contradictionSignals...),
		Results: r.results,
		Ledger:  snap,
	})

	syn := synth.Synthesize(synth.Input{
		Results:        r.results,
		Contradictions: contradictions,
		Risk:           risk,
		StopRules:      stops,
		Integrity:      snap.OverallIntegrity,
	})

	return &model.Report{
		Job:            *r.job,
		Risk:           risk,
		Branches:       r.results,
		Ledger:         snap,
		Contradictions: contradictions,
		Synthesis:      syn,
		GeneratedAt:    o.now(),
	}
}

// fault marks the job failed and returns a best-effort report with err
func (o *Orchestrator) fault(r *run, err error) (*model.Report, error) {
	r.job.Fail(err.Error(), o.now())
	if len(r.results) > 0 {
		r.job.RecordBranches(r.results)
	}
	r.log.Error().Err(err).Str("status", string(r.job.Status)).Msg("diligence job failed")

	report := o.reconcile(r)
	report.Job = *r.job

	// Detached so a cancelled job can still record its failure
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if saveErr := o.deps.Store.SaveJob(saveCtx, *r.job); saveErr != nil {
		r.log.Warn().Err(saveErr).Msg("could not record failed job")
	}
	if len(r.results) > 0 {
		if saveErr := o.persistResults(saveCtx, r, report); saveErr != nil {
			r.log.Warn().Err(saveErr).Msg("could not record partial results")
		}
	}
	return report, err
}

func (o *Orchestrator) advance(ctx context.Context, r *run, to model.JobStatus) error {
	if err := r.job.Advance(to, o.now()); err != nil {
		return err
	}
	if err := o.deps.Store.SaveJob(ctx, *r.job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	r.log.Debug().Str("status", string(to)).Msg("job advanced")
	return nil
}

func (o *Orchestrator) persistResults(ctx context.Context, r *run, report *model.Report) error {
	key := r.req.Entity.Key()
	if err := o.deps.Store.SaveBranches(ctx, key, r.job.ID, report.Branches); err != nil {
		return fmt.Errorf("save branches: %w", err)
	}
	if err := o.deps.Store.SaveLedger(ctx, key, report.Ledger); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// summarize attaches the optional narrative. It runs after synthesis and
// never changes the verdict.
func (o *Orchestrator) summarize(ctx context.Context, r *run, report *model.Report) {
	if o.deps.Summarizer == nil || !o.deps.Summarizer.IsEnabled() {
		return
	}
	summary, err := o.deps.Summarizer.GenerateSummary(ctx, *report)
	if err != nil {
		r.log.Warn().Err(err).Msg("summary generation failed")
		return
	}
	report.LLM = summary
}
