package model

import (
	"fmt"
	"strings"
)

// EntityKind classifies the subject under investigation
type EntityKind string

const (
	EntityCompany EntityKind = "company"
	EntityFund    EntityKind = "fund"
	EntityPerson  EntityKind = "person"
)

// Entity is the subject of a diligence job. Identity is immutable for the
// lifetime of a job.
type Entity struct {
	Name         string     `json:"name" yaml:"name"`
	Kind         EntityKind `json:"kind" yaml:"kind"`
	Website      string     `json:"website,omitempty" yaml:"website,omitempty"`
	Sector       string     `json:"sector,omitempty" yaml:"sector,omitempty"`
	Jurisdiction string     `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
}

// Validate rejects entities that cannot be investigated
func (e Entity) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("entity name is required")
	}
	switch e.Kind {
	case EntityCompany, EntityFund, EntityPerson:
	default:
		return fmt.Errorf("unknown entity kind %q (supported: company, fund, person)", e.Kind)
	}
	return nil
}

// Key returns a stable storage key for the entity
func (e Entity) Key() string {
	return string(e.Kind) + ":" + strings.ToLower(strings.Join(strings.Fields(e.Name), " "))
}

// ParseEntityKind parses a kind string, defaulting to company
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "company", "startup":
		return EntityCompany, nil
	case "fund":
		return EntityFund, nil
	case "person", "founder", "individual":
		return EntityPerson, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}
