package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/diligentia/internal/cache"
	"github.com/ppiankov/diligentia/internal/model"
)

var storeNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "diligentia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(cache.NewMemoryCache(time.Minute, 0)),
		"sqlite": sqlite,
	}
}

func testJob() model.DiligenceJob {
	job := model.NewJob("job-1", model.Entity{Name: "Acme Robotics", Kind: model.EntityCompany}, storeNow)
	job.Tier = model.TierStandardDD
	return *job
}

func TestStore_JobRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			job := testJob()
			require.NoError(t, s.SaveJob(ctx, job))

			got, err := s.GetJob(ctx, job.Entity.Key(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, job.ID, got.ID)
			assert.Equal(t, model.TierStandardDD, got.Tier)
			assert.True(t, got.StartedAt.Equal(storeNow))

			// Upsert replaces the previous record
			require.NoError(t, job.Advance(model.JobAnalyzing, storeNow))
			require.NoError(t, s.SaveJob(ctx, job))
			got, err = s.GetJob(ctx, job.Entity.Key(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobAnalyzing, got.Status)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetJob(ctx, "company:nobody", "missing")
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

			_, err = s.GetBranches(ctx, "company:nobody", "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = s.GetLedger(ctx, "company:nobody", "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_KeyedByEntityAndJob(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			job := testJob()
			require.NoError(t, s.SaveJob(ctx, job))

			_, err := s.GetJob(ctx, "company:someone else", job.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetJob(ctx, job.Entity.Key(), "job-2")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_BranchesAndLedger(t *testing.T) {
	ctx := context.Background()
	results := map[model.BranchKind]model.BranchResult{
		model.BranchEntityProfile: {
			Kind:       model.BranchEntityProfile,
			Class:      model.ClassCore,
			Status:     model.BranchCompleted,
			Confidence: 0.62,
			Facts: map[string]model.FactValue{
				"founded_year": {Value: "2019", Kind: model.FactCategorical, Reliability: model.ReliabilityReliable},
			},
		},
		model.BranchTeam: {Kind: model.BranchTeam, Status: model.BranchFailed, Error: "timed out after 45s", Confidence: 0.15},
	}
	snap := model.LedgerSnapshot{
		JobID:            "job-1",
		Claims:           []model.Claim{{ID: "c1", Text: "Founded in 2019", Verdict: model.VerdictVerified, Citations: []string{"s1"}}},
		OverallIntegrity: model.IntegrityHigh,
	}

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := testJob().Entity.Key()
			require.NoError(t, s.SaveBranches(ctx, key, "job-1", results))
			require.NoError(t, s.SaveLedger(ctx, key, snap))

			gotResults, err := s.GetBranches(ctx, key, "job-1")
			require.NoError(t, err)
			require.Len(t, gotResults, 2)
			assert.Equal(t, "2019", gotResults[model.BranchEntityProfile].Facts["founded_year"].Value)
			assert.Equal(t, model.BranchFailed, gotResults[model.BranchTeam].Status)

			gotSnap, err := s.GetLedger(ctx, key, "job-1")
			require.NoError(t, err)
			require.Len(t, gotSnap.Claims, 1)
			assert.Equal(t, model.VerdictVerified, gotSnap.Claims[0].Verdict)
			assert.Equal(t, model.IntegrityHigh, gotSnap.OverallIntegrity)
		})
	}
}

func TestStore_RejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.SaveLedger(ctx, "company:acme", model.LedgerSnapshot{}))
		})
	}
}

func TestSQLiteStore_ReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "diligentia.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	job := testJob()
	require.NoError(t, s.SaveJob(ctx, job))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.GetJob(ctx, job.Entity.Key(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestOpen(t *testing.T) {
	s, err := Open(model.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(model.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "d.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(model.StoreConfig{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = Open(model.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}
