package domain

import (
	"fmt"
	"strings"
)

// Policy is one deployment variant: an ordered rule table plus a geo policy.
type Policy struct {
	Name  string
	Rules []MatchRule
	Geo   GeoPolicy
}

// NewPolicy validates and builds a Policy. The rule slice is copied.
func NewPolicy(name string, rules []MatchRule, geo GeoPolicy) (Policy, error) {
	p := Policy{
		Name:  strings.TrimSpace(name),
		Rules: append([]MatchRule(nil), rules...),
		Geo:   geo,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the name, every rule and the geo policy.
func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name must not be empty")
	}
	for i, r := range p.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("policy %s: rule %d: %w", p.Name, i, err)
		}
	}
	if err := p.Geo.Validate(); err != nil {
		return fmt.Errorf("policy %s: geo: %w", p.Name, err)
	}
	return nil
}
