// Package scheduler runs a job's branches concurrently and joins them.
// Every selected branch reaches a terminal status: a branch that errors,
// panics or times out degrades to a failed result without affecting the
// others, and branches never started because the job was cancelled are
// reported as skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/diligentia/internal/branch"
	"github.com/ppiankov/diligentia/internal/model"
)

// Config bounds branch execution
type Config struct {
	Workers       int           // Max branches in flight
	BranchTimeout time.Duration // Per-branch deadline; 0 means none beyond the job's
}

// Observer is notified of every branch status transition. It is called from
// branch goroutines and must be safe for concurrent use.
type Observer func(kind model.BranchKind, status model.BranchStatus)

// VerifyFunc runs while a branch is awaiting verification and may rewrite
// the result's claims. It must not publish them anywhere: a job cancelled
// during verification still fails the branch.
type VerifyFunc func(ctx context.Context, result *model.BranchResult)

// Scheduler executes branches with bounded concurrency
type Scheduler struct {
	cfg      Config
	logger   zerolog.Logger
	observer Observer
	verify   VerifyFunc
	now      func() time.Time
}

// New creates a scheduler
func New(cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Scheduler{
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithObserver sets the status observer
func (s *Scheduler) WithObserver(o Observer) *Scheduler {
	s.observer = o
	return s
}

// WithVerifier sets the hook run between a branch finishing and completing
func (s *Scheduler) WithVerifier(v VerifyFunc) *Scheduler {
	s.verify = v
	return s
}

// Run executes every branch and returns one terminal result per kind. It
// never short-circuits: all branches are launched and all are joined.
func (s *Scheduler) Run(ctx context.Context, entity model.Entity, branches []branch.Branch, env *branch.Env) map[model.BranchKind]model.BranchResult {
	results := make([]model.BranchResult, len(branches))
	for _, b := range branches {
		s.notify(b.Kind(), model.BranchPending)
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, b := range branches {
		i, b := i, b
		g.Go(func() error {
			results[i] = s.runOne(ctx, b, entity, env)
			return nil
		})
	}
	_ = g.Wait() // Failures are captured per result

	out := make(map[model.BranchKind]model.BranchResult, len(results))
	for _, r := range results {
		out[r.Kind] = r
	}
	return out
}

type execResult struct {
	outcome branch.Outcome
	err     error
}

func (s *Scheduler) runOne(ctx context.Context, b branch.Branch, entity model.Entity, env *branch.Env) model.BranchResult {
	kind := b.Kind()
	log := s.logger.With().Str("branch", string(kind)).Logger()
	result := model.BranchResult{Kind: kind, Class: b.Class()}

	if ctx.Err() != nil {
		result.Status = model.BranchSkipped
		result.Notes = []string{"job cancelled before branch started"}
		s.notify(kind, model.BranchSkipped)
		log.Debug().Msg("branch skipped")
		return result
	}

	result.StartedAt = s.now()
	s.notify(kind, model.BranchRunning)
	log.Debug().Msg("branch started")

	bctx, cancel := s.branchContext(ctx)
	defer cancel()

	done := make(chan execResult, 1)
	go func() {
		outcome, err := execute(bctx, b, entity, env)
		done <- execResult{outcome: outcome, err: err}
	}()

	var res execResult
	select {
	case res = <-done:
	case <-bctx.Done():
		res.err = bctx.Err()
	}
	result.FinishedAt = s.now()

	if res.err == nil && ctx.Err() != nil {
		res.err = ctx.Err()
	}
	if res.err != nil {
		reason := res.err.Error()
		switch {
		case ctx.Err() != nil:
			reason = "job cancelled: " + reason
		case errors.Is(res.err, context.DeadlineExceeded):
			reason = fmt.Sprintf("timed out after %s", s.cfg.BranchTimeout)
		}
		log.Warn().Str("reason", reason).Dur("duration", result.Duration()).Msg("branch failed")
		return s.fail(result, reason)
	}

	o := res.outcome
	result.Status = model.BranchAwaitingVerification
	result.Findings = o.Findings
	result.Facts = o.Facts
	result.Sources = o.Sources
	result.Confidence = branch.ClampConfidence(o.Confidence)
	result.Claims = o.Claims
	result.RiskSignals = o.RiskSignals
	result.StopRules = o.StopRules
	result.Notes = o.Notes
	s.notify(kind, model.BranchAwaitingVerification)

	if s.verify != nil {
		s.verify(ctx, &result)
	}
	if ctx.Err() != nil {
		result.FinishedAt = s.now()
		log.Warn().Str("reason", "job cancelled during verification").Msg("branch failed")
		return s.fail(result, "job cancelled: "+ctx.Err().Error())
	}

	result.Status = model.BranchCompleted
	s.notify(kind, model.BranchCompleted)
	log.Info().
		Float64("confidence", result.Confidence).
		Int("sources", len(result.Sources)).
		Int("claims", len(result.Claims)).
		Dur("duration", result.Duration()).
		Msg("branch completed")
	return result
}

// fail converts a result into the error fallback. Partial findings are
// discarded so nothing half-finished reaches cross-check.
func (s *Scheduler) fail(result model.BranchResult, reason string) model.BranchResult {
	result.Status = model.BranchFailed
	result.Confidence = branch.ErrorConfidence
	result.Error = reason
	result.Notes = []string{"branch failed: " + reason}
	result.Findings = nil
	result.Facts = nil
	result.Sources = nil
	result.Claims = nil
	result.RiskSignals = nil
	result.StopRules = nil
	s.notify(result.Kind, model.BranchFailed)
	return result
}

func (s *Scheduler) branchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.BranchTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.BranchTimeout)
	}
	return context.WithCancel(ctx)
}

// execute runs one branch, converting a panic into an error
func execute(ctx context.Context, b branch.Branch, entity model.Entity, env *branch.Env) (out branch.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = branch.Outcome{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.Execute(ctx, entity, env)
}

func (s *Scheduler) notify(kind model.BranchKind, status model.BranchStatus) {
	if s.observer != nil {
		s.observer(kind, status)
	}
}
