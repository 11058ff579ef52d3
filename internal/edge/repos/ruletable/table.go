// Package ruletable holds the ordered, immutable rule list evaluated by the classifier.
package ruletable

import (
	"fmt"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/geo-gate/internal/edge/domain"
)

// defaultFPRate is the target false-positive rate of the exact-path prefilter.
const defaultFPRate = 0.01

// Table is an ordered rule list compiled once at startup.
//
// Exact patterns are also loaded into a Bloom filter. A definitely-negative
// filter answer lets Match skip every exact entry during the in-order scan;
// prefix entries are always checked. Since a skipped exact entry could never
// have matched, the first match is the same as a plain scan.
//
// A Table is read-only after New and safe for concurrent use.
type Table struct {
	rules []domain.MatchRule
	exact *bitsbloom.BloomFilter // nil when the table has no exact rules
}

// New validates and compiles rules, preserving declaration order.
// The input slice is copied.
func New(rules []domain.MatchRule) (*Table, error) {
	t := &Table{rules: make([]domain.MatchRule, len(rules))}
	copy(t.rules, rules)

	var n uint
	for i, r := range t.rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if r.IsExact() {
			n++
		}
	}

	if n > 0 {
		t.exact = bitsbloom.NewWithEstimates(n, defaultFPRate)
		for _, r := range t.rules {
			if r.IsExact() {
				t.exact.AddString(r.Pattern)
			}
		}
	}
	return t, nil
}

// Match returns the first rule that matches path.
func (t *Table) Match(path string) (domain.MatchRule, bool) {
	checkExact := t.exact != nil && t.exact.TestString(path)
	for _, r := range t.rules {
		if r.IsExact() && !checkExact {
			continue
		}
		if r.Matches(path) {
			return r, true
		}
	}
	return domain.MatchRule{}, false
}

// Len returns the number of rules.
func (t *Table) Len() int { return len(t.rules) }

// Rules returns a copy of the rules in declaration order.
func (t *Table) Rules() []domain.MatchRule {
	out := make([]domain.MatchRule, len(t.rules))
	copy(out, t.rules)
	return out
}
