package extract

import (
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

// claimKeyword maps a trigger phrase to the claim type it signals
type claimKeyword struct {
	phrase string
	kind   model.ClaimType
}

// ClaimExtractor pulls atomic, checkable statements out of text
type ClaimExtractor struct {
	keywords []claimKeyword
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		keywords: []claimKeyword{
			{"incorporated", model.ClaimTypeIdentity},
			{"registered in", model.ClaimTypeIdentity},
			{"co-founded", model.ClaimTypeIdentity},
			{"ceo of", model.ClaimTypeIdentity},
			{"founded", model.ClaimTypeOrigin},
			{"established", model.ClaimTypeOrigin},
			{"headquartered", model.ClaimTypeOrigin},
			{"raised", model.ClaimTypeFunding},
			{"funding round", model.ClaimTypeFunding},
			{"led by", model.ClaimTypeFunding},
			{"backed by", model.ClaimTypeFunding},
			{"valuation", model.ClaimTypeFunding},
			{"revenue", model.ClaimTypeMetric},
			{"arr", model.ClaimTypeMetric},
			{"customers", model.ClaimTypeMetric},
			{"users", model.ClaimTypeMetric},
			{"employees", model.ClaimTypeMetric},
			{"licensed", model.ClaimTypeRegulatory},
			{"regulated by", model.ClaimTypeRegulatory},
			{"approved by", model.ClaimTypeRegulatory},
			{"fda", model.ClaimTypeRegulatory},
			{"sec", model.ClaimTypeRegulatory},
			{"partnered with", model.ClaimTypeAttribution},
			{"partnership", model.ClaimTypeAttribution},
			{"according to", model.ClaimTypeAttribution},
			{"clinically proven", model.ClaimTypeScientific},
			{"peer-reviewed", model.ClaimTypeScientific},
			{"patented", model.ClaimTypeScientific},
			{"first", model.ClaimTypeGeneral},
			{"invented", model.ClaimTypeGeneral},
		},
	}
}

// ExtractText extracts candidate claims from plain text. Claims come back
// pending; the ledger assigns verdicts.
func (e *ClaimExtractor) ExtractText(text string, extractedFrom string) []model.Claim {
	var claims []model.Claim
	for _, sentence := range splitSentences(text) {
		lower := " " + strings.ToLower(sentence) + " "
		for _, kw := range e.keywords {
			if containsWord(lower, kw.phrase) {
				claims = append(claims, model.Claim{
					Text:          strings.TrimSpace(sentence),
					Type:          kw.kind,
					ExtractedFrom: extractedFrom,
					Heuristic:     "keyword:" + kw.phrase,
					Verdict:       model.VerdictPending,
				})
				break // Only match once per sentence
			}
		}
	}

	return dedupeClaims(claims)
}

// Extract extracts claims from an HTML page
func (e *ClaimExtractor) Extract(htmlContent string, extractedFrom string) ([]model.Claim, error) {
	text, err := VisibleText(htmlContent)
	if err != nil {
		return nil, err
	}
	return e.ExtractText(text, extractedFrom), nil
}

// ClassifyClaim guesses the claim type of a caller-supplied statement
func (e *ClaimExtractor) ClassifyClaim(text string) model.ClaimType {
	lower := " " + strings.ToLower(text) + " "
	for _, kw := range e.keywords {
		if containsWord(lower, kw.phrase) {
			return kw.kind
		}
	}
	return model.ClaimTypeGeneral
}

// containsWord matches phrase on word boundaries within a space-padded,
// lower-cased sentence
func containsWord(padded, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(padded[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		if !isWordByte(padded[start-1]) && (end >= len(padded) || !isWordByte(padded[end])) {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// dedupeClaims removes duplicate claims
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var unique []model.Claim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}

	return unique
}
