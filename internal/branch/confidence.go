package branch

import (
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

// Confidence model constants
const (
	BaselineConfidence = 0.3
	MaxConfidence      = 0.95
	ErrorConfidence    = 0.15 // Fixed value for branches that failed
	findingCap         = 0.5
	sourceCap          = 0.15
)

var sourceIncrement = map[model.Reliability]float64{
	model.ReliabilityAuthoritative: 0.08,
	model.ReliabilityReliable:      0.05,
	model.ReliabilitySecondary:     0.02,
	model.ReliabilityInferred:      0,
}

// ConfidenceBuilder accumulates evidence into a branch confidence:
// baseline + capped findings + capped reliability-weighted sources - penalties,
// clamped to [0, MaxConfidence]
type ConfidenceBuilder struct {
	findings  float64
	sources   float64
	penalties float64
	seen      map[string]bool
	seenURLs  map[string]bool
}

// NewConfidence starts a builder at the baseline
func NewConfidence() *ConfidenceBuilder {
	return &ConfidenceBuilder{
		seen:     make(map[string]bool),
		seenURLs: make(map[string]bool),
	}
}

// Finding adds weight once per distinct finding name
func (b *ConfidenceBuilder) Finding(name string, weight float64) *ConfidenceBuilder {
	if b.seen[name] || weight <= 0 {
		return b
	}
	b.seen[name] = true
	b.findings += weight
	return b
}

// Threshold adds bonus when count reaches min
func (b *ConfidenceBuilder) Threshold(count, min int, bonus float64) *ConfidenceBuilder {
	if min > 0 && count >= min && bonus > 0 {
		b.findings += bonus
	}
	return b
}

// Penalty subtracts weight for negative evidence. Penalties are not capped.
func (b *ConfidenceBuilder) Penalty(weight float64) *ConfidenceBuilder {
	if weight > 0 {
		b.penalties += weight
	}
	return b
}

// Sources adds a reliability-weighted increment per distinct source
func (b *ConfidenceBuilder) Sources(sources []model.Source) *ConfidenceBuilder {
	for _, s := range sources {
		key := strings.ToLower(s.URL)
		if key == "" {
			key = s.ID
		}
		if key == "" || b.seenURLs[key] {
			continue
		}
		b.seenURLs[key] = true
		b.sources += sourceIncrement[s.Reliability]
	}
	return b
}

// Value returns the clamped confidence
func (b *ConfidenceBuilder) Value() float64 {
	v := BaselineConfidence + minFloat(b.findings, findingCap) + minFloat(b.sources, sourceCap) - b.penalties
	return ClampConfidence(v)
}

// ClampConfidence bounds a confidence to [0, MaxConfidence]
func ClampConfidence(v float64) float64 {
	switch {
	case v != v, v < 0: // NaN or negative
		return 0
	case v > MaxConfidence:
		return MaxConfidence
	default:
		return v
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
