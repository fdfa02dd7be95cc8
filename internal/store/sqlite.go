package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/diligentia/internal/model"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS records (
	entity_key TEXT NOT NULL,
	job_id     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (entity_key, job_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_records_job ON records(job_id);
`

// SQLiteStore implements Store on a single SQLite file. Each record is one
// JSON document per (entity, job, kind).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
// The parent directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *SQLiteStore) put(ctx context.Context, kind, entityKey, jobID string, value any) error {
	if err := checkKey(entityKey, jobID); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records(entity_key, job_id, kind, data, updated_at) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(entity_key, job_id, kind) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		entityKey, jobID, kind, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, kind, entityKey, jobID string, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM records WHERE entity_key = ? AND job_id = ? AND kind = ?",
		entityKey, jobID, kind).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s/%s: %w", kind, entityKey, jobID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// SaveJob upserts the job
func (s *SQLiteStore) SaveJob(ctx context.Context, job model.DiligenceJob) error {
	return s.put(ctx, kindJob, job.Entity.Key(), job.ID, job)
}

// GetJob loads a job
func (s *SQLiteStore) GetJob(ctx context.Context, entityKey, jobID string) (model.DiligenceJob, error) {
	var job model.DiligenceJob
	err := s.get(ctx, kindJob, entityKey, jobID, &job)
	return job, err
}

// SaveBranches upserts the branch results of a job
func (s *SQLiteStore) SaveBranches(ctx context.Context, entityKey, jobID string, results map[model.BranchKind]model.BranchResult) error {
	return s.put(ctx, kindBranches, entityKey, jobID, results)
}

// GetBranches loads the branch results of a job
func (s *SQLiteStore) GetBranches(ctx context.Context, entityKey, jobID string) (map[model.BranchKind]model.BranchResult, error) {
	var results map[model.BranchKind]model.BranchResult
	err := s.get(ctx, kindBranches, entityKey, jobID, &results)
	return results, err
}

// SaveLedger upserts a ledger snapshot
func (s *SQLiteStore) SaveLedger(ctx context.Context, entityKey string, snap model.LedgerSnapshot) error {
	return s.put(ctx, kindLedger, entityKey, snap.JobID, snap)
}

// GetLedger loads the ledger snapshot of a job
func (s *SQLiteStore) GetLedger(ctx context.Context, entityKey, jobID string) (model.LedgerSnapshot, error) {
	var snap model.LedgerSnapshot
	err := s.get(ctx, kindLedger, entityKey, jobID, &snap)
	return snap, err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
