package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/orchestrator"
)

// entityFlags are shared by run and quick
type entityFlags struct {
	kind         string
	website      string
	sector       string
	jurisdiction string
	amount       float64
	round        string
	wire         bool
	signals      []string
}

func (f *entityFlags) entity(name string) (model.Entity, error) {
	kind, err := model.ParseEntityKind(f.kind)
	if err != nil {
		return model.Entity{}, err
	}
	return model.Entity{
		Name:         strings.TrimSpace(name),
		Kind:         kind,
		Website:      f.website,
		Sector:       f.sector,
		Jurisdiction: f.jurisdiction,
	}, nil
}

func (f *entityFlags) funding() model.FundingSignals {
	return model.FundingSignals{AmountUSD: f.amount, Round: f.round, WireInstructionsProvided: f.wire}
}

func (f *entityFlags) parsedSignals() ([]model.RiskSignal, error) {
	var out []model.RiskSignal
	for _, raw := range f.signals {
		s, err := parseSignal(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// parseSignal reads "category:name:severity[:trigger]"
func parseSignal(raw string) (model.RiskSignal, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return model.RiskSignal{}, fmt.Errorf("signal %q: want category:name:severity[:trigger]", raw)
	}
	severity, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return model.RiskSignal{}, fmt.Errorf("signal %q: severity: %w", raw, err)
	}
	s := model.RiskSignal{
		Category: model.RiskCategory(strings.TrimSpace(parts[0])),
		Name:     strings.TrimSpace(parts[1]),
		Severity: severity,
	}
	if len(parts) == 4 {
		s.Trigger = strings.TrimSpace(parts[3])
	}
	return s, nil
}

// loadRequest reads a YAML request file. Fields set on the command line are
// merged on top by the caller.
func loadRequest(path string) (orchestrator.Request, error) {
	var req orchestrator.Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read request: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse request %s: %w", path, err)
	}
	if req.Entity.Kind == "" {
		req.Entity.Kind = model.EntityCompany
	}
	return req, nil
}

// knownClaims turns --claim values into caller claims
func knownClaims(texts []string) []model.Claim {
	claims := make([]model.Claim, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			claims = append(claims, model.Claim{Text: t, ExtractedFrom: "caller"})
		}
	}
	return claims
}
