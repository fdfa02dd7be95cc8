package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/diligentia/internal/model"
)

type mockInvestigator struct {
	failFor string
}

func (m *mockInvestigator) Investigate(ctx context.Context, entity model.Entity) (*model.Report, error) {
	time.Sleep(2 * time.Millisecond)
	if entity.Name == m.failFor {
		return nil, errors.New("investigation error")
	}
	return &model.Report{Job: model.DiligenceJob{Entity: entity}}, nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessEntities(t *testing.T) {
	processor := NewBatchProcessor(&mockInvestigator{failFor: "Broken Ltd"}, 2)
	entities := []model.Entity{
		{Name: "Acme", Kind: model.EntityCompany},
		{Name: "Broken Ltd", Kind: model.EntityCompany},
		{Name: "Jane Doe", Kind: model.EntityPerson},
	}

	results := processor.ProcessEntities(context.Background(), entities)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Entity.Name != entities[i].Name {
			t.Errorf("result %d is for %q, want %q", i, r.Entity.Name, entities[i].Name)
		}
	}
	if results[0].Error != nil || results[0].Report == nil {
		t.Errorf("expected success for Acme, got %v", results[0].Error)
	}
	if results[1].Error == nil || results[1].Report != nil {
		t.Error("expected error and nil report for Broken Ltd")
	}
}

func TestBatchProcessor_ProcessEntities_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockInvestigator{}, 2)
	if results := processor.ProcessEntities(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadEntitiesFromFile_Lines(t *testing.T) {
	path := writeTemp(t, "entities.txt", `Acme Corp
# comment
person: Jane Doe

fund:Blue Ocean Capital
acme   corp
`)

	entities, err := ReadEntitiesFromFile(path)
	if err != nil {
		t.Fatalf("ReadEntitiesFromFile failed: %v", err)
	}

	expected := []model.Entity{
		{Name: "Acme Corp", Kind: model.EntityCompany},
		{Name: "Jane Doe", Kind: model.EntityPerson},
		{Name: "Blue Ocean Capital", Kind: model.EntityFund},
	}
	if len(entities) != len(expected) {
		t.Fatalf("expected %d entities, got %d: %+v", len(expected), len(entities), entities)
	}
	for i, e := range entities {
		if e != expected[i] {
			t.Errorf("entity %d = %+v, want %+v", i, e, expected[i])
		}
	}
}

func TestReadEntitiesFromFile_YAML(t *testing.T) {
	path := writeTemp(t, "entities.yaml", `- name: Acme Corp
  website: https://acme.example
- name: Jane Doe
  kind: person
`)

	entities, err := ReadEntitiesFromFile(path)
	if err != nil {
		t.Fatalf("ReadEntitiesFromFile failed: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Kind != model.EntityCompany || entities[0].Website != "https://acme.example" {
		t.Errorf("unexpected first entity: %+v", entities[0])
	}
	if entities[1].Kind != model.EntityPerson {
		t.Errorf("expected person, got %s", entities[1].Kind)
	}
}

func TestReadEntitiesFromFile_InvalidKind(t *testing.T) {
	path := writeTemp(t, "bad.yaml", "- name: X\n  kind: spaceship\n")
	if _, err := ReadEntitiesFromFile(path); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestReadEntitiesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadEntitiesFromFile("no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "entities.txt", "Acme\nGlobex\n")
	results, err := NewBatchProcessor(&mockInvestigator{}, 2).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestEntityResult_GetError(t *testing.T) {
	expected := errors.New("failed")
	r := &EntityResult{Error: expected}
	if r.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r.GetError())
	}
}
