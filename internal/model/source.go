package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source is an evidence citation attached to a branch result or a claim
type Source struct {
	ID          string      `json:"id"`
	Type        SourceType  `json:"source_type"`
	URL         string      `json:"url,omitempty"`
	Title       string      `json:"title,omitempty"`
	AccessedAt  time.Time   `json:"accessed_at"`
	PublishedAt *time.Time  `json:"published_at,omitempty"`
	Reliability Reliability `json:"reliability"`
}

// SourceType classifies where a citation came from
type SourceType string

const (
	SourceSearch   SourceType = "search"   // Web search result snippet
	SourceRegistry SourceType = "registry" // Company/court/regulator registry
	SourceWebsite  SourceType = "website"  // The entity's own site
	SourceDocument SourceType = "document" // Caller-supplied document or claim
	SourceModel    SourceType = "model"    // Language-model inference
)

// Reliability grades a source. Assigned from origin and never upgraded.
type Reliability int

const (
	ReliabilityInferred      Reliability = 0 // Derived by inference, no direct citation
	ReliabilitySecondary     Reliability = 1 // News, blogs, aggregators
	ReliabilityReliable      Reliability = 2 // Major publishers, established databases
	ReliabilityAuthoritative Reliability = 3 // Government registries, regulators, courts
)

func (r Reliability) String() string {
	switch r {
	case ReliabilityAuthoritative:
		return "authoritative"
	case ReliabilityReliable:
		return "reliable"
	case ReliabilitySecondary:
		return "secondary"
	default:
		return "inferred"
	}
}

// MarshalText encodes the reliability by name
func (r Reliability) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reliability name
func (r *Reliability) UnmarshalText(text []byte) error {
	parsed, err := ParseReliability(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseReliability converts a reliability name or rank to Reliability
func ParseReliability(s string) (Reliability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "authoritative", "primary", "3":
		return ReliabilityAuthoritative, nil
	case "reliable", "2":
		return ReliabilityReliable, nil
	case "secondary", "tertiary", "1":
		return ReliabilitySecondary, nil
	case "inferred", "", "0":
		return ReliabilityInferred, nil
	default:
		return ReliabilityInferred, fmt.Errorf("unknown reliability %q", s)
	}
}

// BestReliability returns the strongest reliability among sources
func BestReliability(sources []Source) Reliability {
	best := ReliabilityInferred
	for _, s := range sources {
		if s.Reliability > best {
			best = s.Reliability
		}
	}
	return best
}

// SourceID derives a stable source ID from a URL, so the same page is the
// same source across branches and the verifier
func SourceID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}
