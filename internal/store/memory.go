package store

import (
	"context"
	"fmt"

	"github.com/ppiankov/diligentia/internal/cache"
	"github.com/ppiankov/diligentia/internal/model"
)

// MemoryStore keeps records in a byte cache as JSON. Reads return fresh
// copies, so callers never share state with the store.
type MemoryStore struct {
	cache cache.Cache
}

// NewMemoryStore wraps c
func NewMemoryStore(c cache.Cache) *MemoryStore {
	return &MemoryStore{cache: c}
}

func (s *MemoryStore) key(kind, entityKey, jobID string) string {
	return cache.Key("store", kind, entityKey, jobID)
}

func (s *MemoryStore) put(ctx context.Context, kind, entityKey, jobID string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(entityKey, jobID); err != nil {
		return err
	}
	if err := cache.SetJSON(s.cache, s.key(kind, entityKey, jobID), value, 0); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

func (s *MemoryStore) get(ctx context.Context, kind, entityKey, jobID string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := cache.GetJSON(s.cache, s.key(kind, entityKey, jobID), out)
	if err != nil {
		return fmt.Errorf("load %s: %w", kind, err)
	}
	if !ok {
		return fmt.Errorf("%s %s/%s: %w", kind, entityKey, jobID, ErrNotFound)
	}
	return nil
}

// SaveJob stores the job under its entity key and ID
func (s *MemoryStore) SaveJob(ctx context.Context, job model.DiligenceJob) error {
	return s.put(ctx, kindJob, job.Entity.Key(), job.ID, job)
}

// GetJob loads a job
func (s *MemoryStore) GetJob(ctx context.Context, entityKey, jobID string) (model.DiligenceJob, error) {
	var job model.DiligenceJob
	err := s.get(ctx, kindJob, entityKey, jobID, &job)
	return job, err
}

// SaveBranches stores the terminal branch results of a job
func (s *MemoryStore) SaveBranches(ctx context.Context, entityKey, jobID string, results map[model.BranchKind]model.BranchResult) error {
	return s.put(ctx, kindBranches, entityKey, jobID, results)
}

// GetBranches loads the branch results of a job
func (s *MemoryStore) GetBranches(ctx context.Context, entityKey, jobID string) (map[model.BranchKind]model.BranchResult, error) {
	var results map[model.BranchKind]model.BranchResult
	err := s.get(ctx, kindBranches, entityKey, jobID, &results)
	return results, err
}

// SaveLedger stores a ledger snapshot under its job ID
func (s *MemoryStore) SaveLedger(ctx context.Context, entityKey string, snap model.LedgerSnapshot) error {
	return s.put(ctx, kindLedger, entityKey, snap.JobID, snap)
}

// GetLedger loads the ledger snapshot of a job
func (s *MemoryStore) GetLedger(ctx context.Context, entityKey, jobID string) (model.LedgerSnapshot, error) {
	var snap model.LedgerSnapshot
	err := s.get(ctx, kindLedger, entityKey, jobID, &snap)
	return snap, err
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
