// Package store persists diligence jobs, branch results and claim ledgers.
// Records are keyed by (entity key, job ID) so one entity can carry many
// investigations.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/diligentia/internal/cache"
	"github.com/ppiankov/diligentia/internal/model"
)

// ErrNotFound is returned when no record exists for the key
var ErrNotFound = errors.New("record not found")

// Store is the persistence facade used by the orchestrator. Implementations
// are SQLite (durable) or in-memory.
type Store interface {
	SaveJob(ctx context.Context, job model.DiligenceJob) error
	GetJob(ctx context.Context, entityKey, jobID string) (model.DiligenceJob, error)
	SaveBranches(ctx context.Context, entityKey, jobID string, results map[model.BranchKind]model.BranchResult) error
	GetBranches(ctx context.Context, entityKey, jobID string) (map[model.BranchKind]model.BranchResult, error)
	SaveLedger(ctx context.Context, entityKey string, snap model.LedgerSnapshot) error
	GetLedger(ctx context.Context, entityKey, jobID string) (model.LedgerSnapshot, error)
	Close() error
}

// Record kinds
const (
	kindJob      = "job"
	kindBranches = "branches"
	kindLedger   = "ledger"
)

// Open builds the store selected by cfg
func Open(cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return NewMemoryStore(cache.NewMemoryCache(retention(cfg), janitorInterval(cfg))), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("store path is required for sqlite")
		}
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q (supported: sqlite, memory)", cfg.Driver)
	}
}

func retention(cfg model.StoreConfig) time.Duration {
	if cfg.CacheTTL <= 0 {
		return -1 // never expire
	}
	return cfg.CacheTTL
}

func janitorInterval(cfg model.StoreConfig) time.Duration {
	if cfg.CacheTTL <= 0 {
		return 0
	}
	return cfg.CacheTTL * 2
}

func checkKey(entityKey, jobID string) error {
	if entityKey == "" || jobID == "" {
		return fmt.Errorf("entity key and job id are required")
	}
	return nil
}
