// Package classifier maps a normalized request to a pass-through or synthetic outcome.
//
// Evaluation order is fixed: bypass paths, then the rule table (first match wins),
// then the geo policy. Every request yields exactly one outcome; a Classifier holds
// no mutable state and may be shared by any number of goroutines.
package classifier

import (
	"fmt"

	"github.com/haukened/geo-gate/internal/edge/domain"
	"github.com/haukened/geo-gate/internal/edge/repos/ruletable"
)

// Classifier evaluates requests against one policy.
type Classifier struct {
	name  string
	table *ruletable.Table
	geo   domain.GeoPolicy
}

// New validates the policy and compiles its rule table.
// Any error here is a startup-time configuration fault.
func New(policy domain.Policy) (*Classifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	table, err := ruletable.New(policy.Rules)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", policy.Name, err)
	}
	return &Classifier{name: policy.Name, table: table, geo: policy.Geo}, nil
}

// PolicyName returns the name of the policy this classifier enforces.
func (c *Classifier) PolicyName() string { return c.name }

// RuleCount returns the number of match rules in the table.
func (c *Classifier) RuleCount() int { return c.table.Len() }

// Classify returns the outcome for req.
func (c *Classifier) Classify(req domain.Request) domain.Outcome {
	if c.geo.IsBypass(req.Path) {
		return domain.PassThrough(req)
	}
	if rule, ok := c.table.Match(req.Path); ok {
		return domain.Synthetic(rule.Response)
	}
	out := EvaluateGeo(req.GeoCountryCode, c.geo)
	if out.IsPassThrough() {
		return domain.PassThrough(req)
	}
	return out
}

// MatchRule returns the response of the first rule in rules that matches path.
func MatchRule(path string, rules []domain.MatchRule) (domain.SyntheticResponse, bool) {
	for _, r := range rules {
		if r.Matches(path) {
			return r.Response, true
		}
	}
	return domain.SyntheticResponse{}, false
}

// EvaluateGeo resolves countryCode and checks it against policy.
// A pass-through result carries an empty request; callers attach their own.
func EvaluateGeo(countryCode string, policy domain.GeoPolicy) domain.Outcome {
	if policy.Allows(domain.ResolveCountry(countryCode)) {
		return domain.PassThrough(domain.Request{})
	}
	return domain.Synthetic(policy.OnDisallowed())
}
