// Package synth reconciles branch outputs and produces the final verdict.
// Nothing here fails: every function is total over its inputs, including
// the degenerate case where every branch failed.
package synth

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/tier"
)

// NumericTolerance is the relative difference above which two numeric facts
// disagree
const NumericTolerance = 0.10

// identityFields are facts whose unresolved disagreement means the branches
// may not be looking at the same entity
var identityFields = map[string]bool{
	"jurisdiction": true,
	"ceo":          true,
}

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// CrossCheck compares every unordered pair of completed branches on the
// facts both report. Output order is deterministic: by branch pair, then by
// field name.
func CrossCheck(results map[model.BranchKind]model.BranchResult) []model.Contradiction {
	var completed []model.BranchResult
	for _, kind := range model.SortedKinds(results) {
		if r := results[kind]; r.Status == model.BranchCompleted && len(r.Facts) > 0 {
			completed = append(completed, r)
		}
	}

	var out []model.Contradiction
	for i := 0; i < len(completed); i++ {
		for j := i + 1; j < len(completed); j++ {
			a, b := completed[i], completed[j]
			for _, field := range sharedFields(a.Facts, b.Facts) {
				if c, ok := compare(field, a.Kind, a.Facts[field], b.Kind, b.Facts[field]); ok {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

func sharedFields(a, b map[string]model.FactValue) []string {
	var fields []string
	for f := range a {
		if _, ok := b[f]; ok {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return fields
}

// compare returns a contradiction when two values of the same field disagree
func compare(field string, kindA model.BranchKind, a model.FactValue, kindB model.BranchKind, b model.FactValue) (model.Contradiction, bool) {
	kind := a.Kind
	if a.Kind == model.FactMulti || b.Kind == model.FactMulti {
		kind = model.FactMulti
	} else if a.Kind != b.Kind {
		kind = model.FactCategorical
	}

	var differ bool
	switch kind {
	case model.FactNumeric:
		differ = numericDiffer(a, b)
	default:
		differ = Normalize(a.Value) != Normalize(b.Value)
	}
	if !differ {
		return model.Contradiction{}, false
	}

	c := model.Contradiction{
		Field:         field,
		SourceBranchA: kindA,
		ValueA:        display(a),
		SourceBranchB: kindB,
		ValueB:        display(b),
		Resolution:    model.Unresolved,
	}
	switch {
	case kind == model.FactMulti:
		c.Resolution = model.BothValid
	case a.Reliability > b.Reliability:
		c.Resolution = model.ResolvedToA
	case b.Reliability > a.Reliability:
		c.Resolution = model.ResolvedToB
	}
	return c, true
}

func numericDiffer(a, b model.FactValue) bool {
	if a.Number == 0 && b.Number == 0 {
		return Normalize(a.Value) != Normalize(b.Value)
	}
	den := math.Max(math.Abs(a.Number), math.Abs(b.Number))
	return math.Abs(a.Number-b.Number)/den > NumericTolerance
}

func display(v model.FactValue) string {
	if v.Value != "" {
		return v.Value
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// Normalize folds case, punctuation and whitespace so "Berlin, DE" and
// "berlin de" compare equal
func Normalize(s string) string {
	s = punctuation.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// Unresolved counts contradictions no reliability ordering could settle
func Unresolved(contradictions []model.Contradiction) int {
	n := 0
	for _, c := range contradictions {
		if c.Resolution == model.Unresolved {
			n++
		}
	}
	return n
}

// ContradictionSignals turns unresolved contradictions into risk signals.
// Disagreement on identity fields is an identity-mismatch trigger.
func ContradictionSignals(contradictions []model.Contradiction) []model.RiskSignal {
	var signals []model.RiskSignal
	for _, c := range contradictions {
		if c.Resolution != model.Unresolved {
			continue
		}
		detail := string(c.SourceBranchA) + "=" + c.ValueA + " vs " + string(c.SourceBranchB) + "=" + c.ValueB
		if identityFields[c.Field] {
			signals = append(signals, model.RiskSignal{
				Category: model.RiskIdentityProvenance,
				Name:     "identity_conflict_" + c.Field,
				Severity: 70,
				Trigger:  tier.TriggerIdentityMismatch,
				Detail:   detail,
			})
			continue
		}
		signals = append(signals, model.RiskSignal{
			Category: model.RiskDocumentConsistency,
			Name:     "unresolved_" + c.Field,
			Severity: 35,
			Detail:   detail,
		})
	}
	return signals
}
