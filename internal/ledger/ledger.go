// Package ledger keeps the per-job claim ledger and verifies claims against
// gathered evidence. The ledger is append-only: a claim is never edited in
// place, only superseded by a newer claim that points back at it.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/diligentia/internal/model"
)

var (
	// ErrDuplicateClaim is returned when a claim ID is already recorded
	ErrDuplicateClaim = errors.New("claim already recorded")
	// ErrUnknownClaim is returned when superseding a claim that is not recorded
	ErrUnknownClaim = errors.New("unknown claim")
)

// Ledger is the claim ledger of one job. Safe for concurrent use.
type Ledger struct {
	mu         sync.Mutex
	jobID      string
	claims     []model.Claim
	index      map[string]int
	superseded map[string]bool
	now        func() time.Time
}

// New creates an empty ledger. A nil clock uses time.Now.
func New(jobID string, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		jobID:      jobID,
		index:      make(map[string]int),
		superseded: make(map[string]bool),
		now:        now,
	}
}

// Append records a claim atomically and returns it as stored. Freshness is
// assigned here from the source date, and a verdict other than unverified
// without a citation is downgraded to unverified.
func (l *Ledger) Append(c model.Claim) (model.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(c)
}

// AppendAll records claims in order, skipping duplicates. It returns the
// stored claims.
func (l *Ledger) AppendAll(claims []model.Claim) []model.Claim {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		s, err := l.appendLocked(c)
		if err != nil {
			continue
		}
		stored = append(stored, s)
	}
	return stored
}

// Supersede records replacement as the successor of the claim oldID. The
// old claim stays in the ledger but no longer counts toward integrity.
func (l *Ledger) Supersede(oldID string, replacement model.Claim) (model.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[oldID]; !ok {
		return model.Claim{}, fmt.Errorf("supersede %s: %w", oldID, ErrUnknownClaim)
	}
	if l.superseded[oldID] {
		return model.Claim{}, fmt.Errorf("supersede %s: already superseded", oldID)
	}
	if replacement.ID == oldID {
		replacement.ID = ""
	}
	replacement.Contradictions = appendUnique(replacement.Contradictions, oldID)
	replacement.RecordedAt = time.Time{}

	stored, err := l.appendLocked(replacement)
	if err != nil {
		return model.Claim{}, err
	}
	l.superseded[oldID] = true
	return stored, nil
}

func (l *Ledger) appendLocked(c model.Claim) (model.Claim, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, ok := l.index[c.ID]; ok {
		return model.Claim{}, fmt.Errorf("append %s: %w", c.ID, ErrDuplicateClaim)
	}

	now := l.now().UTC()
	if c.Verdict == "" {
		c.Verdict = model.VerdictPending
	}
	if c.Verdict != model.VerdictUnverified && len(c.Citations) == 0 {
		c.Verdict = model.VerdictUnverified
	}
	c.Confidence = clamp01(c.Confidence)
	c.Freshness = model.FreshnessAt(c.SourceDate, now)
	if c.RecordedAt.IsZero() {
		c.RecordedAt = now
	}
	if c.Type == "" {
		c.Type = model.ClaimTypeGeneral
	}

	c.Citations = append([]string(nil), c.Citations...)
	c.Contradictions = append([]string(nil), c.Contradictions...)
	l.index[c.ID] = len(l.claims)
	l.claims = append(l.claims, c)
	return c, nil
}

// Get returns a recorded claim by ID
func (l *Ledger) Get(id string) (model.Claim, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return model.Claim{}, false
	}
	return copyClaim(l.claims[i]), true
}

// Len returns the number of recorded claims, superseded ones included
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.claims)
}

// Snapshot returns a point-in-time copy. Counts and integrity are computed
// from the live (not superseded) claims every time.
func (l *Ledger) Snapshot() model.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	claims := make([]model.Claim, len(l.claims))
	var live []model.Claim
	for i, c := range l.claims {
		claims[i] = copyClaim(c)
		if !l.superseded[c.ID] {
			live = append(live, c)
		}
	}

	contradicted, unverifiable := Counts(live)
	return model.LedgerSnapshot{
		JobID:              l.jobID,
		Claims:             claims,
		ContradictionCount: contradicted,
		UnverifiableCount:  unverifiable,
		OverallIntegrity:   Integrity(live),
		TakenAt:            l.now().UTC(),
	}
}

// Counts returns how many claims are contradicted and how many are
// unverifiable (unverified or still pending)
func Counts(claims []model.Claim) (contradicted, unverifiable int) {
	for _, c := range claims {
		switch c.Verdict {
		case model.VerdictContradicted:
			contradicted++
		case model.VerdictUnverified, model.VerdictPending, "":
			unverifiable++
		}
	}
	return contradicted, unverifiable
}

// Integrity grades a set of claims: high with no contradictions and at most
// 20% unverifiable, medium with at most 10% contradicted and 50%
// unverifiable, low otherwise
func Integrity(claims []model.Claim) model.Integrity {
	if len(claims) == 0 {
		return model.IntegrityHigh
	}
	contradicted, unverifiable := Counts(claims)
	total := float64(len(claims))
	cr := float64(contradicted) / total
	ur := float64(unverifiable) / total

	switch {
	case contradicted == 0 && ur <= 0.2:
		return model.IntegrityHigh
	case cr <= 0.1 && ur <= 0.5:
		return model.IntegrityMedium
	default:
		return model.IntegrityLow
	}
}

func copyClaim(c model.Claim) model.Claim {
	c.Citations = append([]string(nil), c.Citations...)
	c.Contradictions = append([]string(nil), c.Contradictions...)
	if c.SourceDate != nil {
		d := *c.SourceDate
		c.SourceDate = &d
	}
	return c
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(append([]string(nil), list...), s)
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
