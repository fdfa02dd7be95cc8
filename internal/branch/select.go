package branch

import (
	"fmt"
	"sort"

	"github.com/ppiankov/diligentia/internal/model"
)

// Selection is everything branch selection depends on
type Selection struct {
	Tier              model.DDTier
	Complexity        model.ComplexitySignals
	Playbook          model.PlaybookSignals
	FundingRequest    bool // The job backs a funding decision
	QuickVerification bool // Run micro branches instead of core at shallow tiers
	HasWebsite        bool
}

// Select returns the branch kinds a job runs, in a stable order: core,
// conditional, investor playbook, micro
func Select(s Selection) []model.BranchKind {
	shallow := s.Tier <= model.TierLightDD
	if s.QuickVerification && shallow {
		kinds := []model.BranchKind{model.BranchRegistryLookup}
		if s.HasWebsite {
			kinds = append([]model.BranchKind{model.BranchDomainPresence}, kinds...)
		}
		return kinds
	}

	kinds := []model.BranchKind{
		model.BranchEntityProfile,
		model.BranchTeam,
		model.BranchFundingHistory,
		model.BranchAdverseMedia,
	}

	if !shallow {
		full := s.Tier == model.TierFullPlaybook
		c := s.Complexity
		if c.HasPatentMentions {
			kinds = append(kinds, model.BranchIPPatents)
		}
		if c.RegulatedSector {
			kinds = append(kinds, model.BranchRegulatory)
		}
		if c.TeamSize > 5 {
			kinds = append(kinds, model.BranchTeamBackground)
		}
		if c.HasCompetitorMentions || full {
			kinds = append(kinds, model.BranchMarketCompetition)
		}
		if c.ClaimsRevenue {
			kinds = append(kinds, model.BranchCustomerTraction)
		}
	}

	if s.FundingRequest {
		full := s.Tier == model.TierFullPlaybook
		p := s.Playbook
		if p.WireInstructionsProvided {
			kinds = append(kinds, model.BranchWireVerification)
		}
		if p.RegulatedSector || p.ClaimsRegulatoryStatus {
			kinds = append(kinds, model.BranchRegulatoryStatus)
		}
		if full || p.OffshoreStructure {
			kinds = append(kinds, model.BranchBeneficialOwnership)
		}
		if full {
			kinds = append(kinds, model.BranchReferenceCheck)
		}
	}

	return kinds
}

// Registry maps branch kinds to their implementations
type Registry struct {
	branches map[model.BranchKind]Branch
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{branches: make(map[model.BranchKind]Branch)}
}

// Register adds or replaces the implementation of a kind
func (r *Registry) Register(b Branch) {
	r.branches[b.Kind()] = b
}

// Get returns the implementation of a kind
func (r *Registry) Get(kind model.BranchKind) (Branch, bool) {
	b, ok := r.branches[kind]
	return b, ok
}

// Kinds lists the registered kinds, sorted
func (r *Registry) Kinds() []model.BranchKind {
	kinds := make([]model.BranchKind, 0, len(r.branches))
	for k := range r.branches {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Build resolves kinds to branches, failing on the first unknown kind
func (r *Registry) Build(kinds []model.BranchKind) ([]Branch, error) {
	out := make([]Branch, 0, len(kinds))
	for _, k := range kinds {
		b, ok := r.branches[k]
		if !ok {
			return nil, fmt.Errorf("no branch registered for kind %q", k)
		}
		out = append(out, b)
	}
	return out, nil
}

// Default returns a registry holding every built-in branch kind
func Default() *Registry {
	r := NewRegistry()
	for _, b := range []Branch{
		NewEntityProfile(),
		NewTeam(),
		NewFundingHistory(),
		NewAdverseMedia(),
		NewIPPatents(),
		NewRegulatory(),
		NewTeamBackground(),
		NewMarketCompetition(),
		NewCustomerTraction(),
		NewWireVerification(),
		NewRegulatoryStatus(),
		NewBeneficialOwnership(),
		NewReferenceCheck(),
		NewDomainPresence(),
		NewRegistryLookup(),
	} {
		r.Register(b)
	}
	return r
}
