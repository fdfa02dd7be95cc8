package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
	"gopkg.in/yaml.v3"
)

// Investigator runs a full diligence job for one entity
type Investigator interface {
	Investigate(ctx context.Context, entity model.Entity) (*model.Report, error)
}

// EntityJob is a batch job for one entity
type EntityJob struct {
	Entity       model.Entity
	Investigator Investigator
}

// Execute runs the investigation
func (j *EntityJob) Execute(ctx context.Context) Result {
	report, err := j.Investigator.Investigate(ctx, j.Entity)
	return &EntityResult{Entity: j.Entity, Report: report, Error: err}
}

// EntityResult is the outcome of one batch entry
type EntityResult struct {
	Entity model.Entity
	Report *model.Report
	Error  error
}

// GetError returns the job error
func (r *EntityResult) GetError() error {
	return r.Error
}

// BatchProcessor investigates many entities concurrently
type BatchProcessor struct {
	investigator Investigator
	concurrency  int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(investigator Investigator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		investigator: investigator,
		concurrency:  concurrency,
	}
}

// ProcessEntities investigates entities and returns results in input order
func (b *BatchProcessor) ProcessEntities(ctx context.Context, entities []model.Entity) []*EntityResult {
	if len(entities) == 0 {
		return []*EntityResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	for _, e := range entities {
		pool.Submit(&EntityJob{Entity: e, Investigator: b.investigator})
	}

	results := pool.Wait()
	out := make([]*EntityResult, len(entities))
	for i := range entities {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*EntityResult)
			continue
		}
		cause := context.Cause(ctx)
		if cause == nil {
			cause = fmt.Errorf("dropped by pool")
		}
		out[i] = &EntityResult{Entity: entities[i], Error: fmt.Errorf("not run: %w", cause)}
	}
	return out
}

// ProcessFile reads entities from a file and investigates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*EntityResult, error) {
	entities, err := ReadEntitiesFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}
	return b.ProcessEntities(ctx, entities), nil
}

// ReadEntitiesFromFile reads a YAML list of entities, or a plain text file
// with one "kind:name" (or bare name, meaning company) per line. Blank lines
// and # comments are skipped; duplicates are dropped.
func ReadEntitiesFromFile(path string) ([]model.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("-")) {
		var entities []model.Entity
		if err := yaml.Unmarshal(data, &entities); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		for i := range entities {
			if entities[i].Kind == "" {
				entities[i].Kind = model.EntityCompany
			}
			if err := entities[i].Validate(); err != nil {
				return nil, fmt.Errorf("entity %d: %w", i+1, err)
			}
		}
		return dedupeEntities(entities), nil
	}

	var entities []model.Entity
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entity := model.Entity{Name: line, Kind: model.EntityCompany}
		if kind, name, ok := strings.Cut(line, ":"); ok {
			if parsed, err := model.ParseEntityKind(kind); err == nil {
				entity = model.Entity{Name: strings.TrimSpace(name), Kind: parsed}
			}
		}
		if err := entity.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entities = append(entities, entity)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return dedupeEntities(entities), nil
}

func dedupeEntities(entities []model.Entity) []model.Entity {
	seen := make(map[string]bool)
	var unique []model.Entity
	for _, e := range entities {
		if key := e.Key(); !seen[key] {
			seen[key] = true
			unique = append(unique, e)
		}
	}
	return unique
}
