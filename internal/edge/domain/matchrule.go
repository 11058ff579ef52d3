package domain

import (
	"fmt"
	"strings"
)

// MatchKind defines how a rule matches request paths.
//
// exact  - matches only when the path equals the pattern byte for byte
// prefix - matches any path that begins with the pattern
type MatchKind uint8

const (
	// MatchExact matches only the exact path.
	MatchExact MatchKind = iota
	// MatchPrefix matches every path starting with the pattern.
	MatchPrefix
)

// String returns a stable string representation of the match kind.
func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	default:
		return fmt.Sprintf("MatchKind(%d)", k)
	}
}

// ParseMatchKind converts a string into a MatchKind.
// Accepts: "exact", "prefix" (case-insensitive).
func ParseMatchKind(s string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return MatchExact, nil
	case "prefix":
		return MatchPrefix, nil
	default:
		return 0, fmt.Errorf("unsupported MatchKind: %q", s)
	}
}

// MatchRule binds a path pattern to the synthetic response returned when it matches.
//
// Notes:
//   - Patterns are compared case-sensitively with no trailing-slash normalization.
//   - An exact "/wp-content" and a prefix "/wp-content/" are distinct rules and may coexist.
//   - A prefix of "//" catches protocol-relative and otherwise malformed paths.
type MatchRule struct {
	Kind     MatchKind
	Pattern  string
	Response SyntheticResponse
}

// NewMatchRule constructs a MatchRule and validates its fields.
// The pattern is kept verbatim; whitespace is significant in a path.
func NewMatchRule(kind MatchKind, pattern string, resp SyntheticResponse) (MatchRule, error) {
	r := MatchRule{Kind: kind, Pattern: pattern, Response: resp}
	if err := r.Validate(); err != nil {
		return MatchRule{}, err
	}
	return r, nil
}

// NewExactRule convenience constructor for an exact rule.
func NewExactRule(pattern string, resp SyntheticResponse) (MatchRule, error) {
	return NewMatchRule(MatchExact, pattern, resp)
}

// NewPrefixRule convenience constructor for a prefix rule.
func NewPrefixRule(pattern string, resp SyntheticResponse) (MatchRule, error) {
	return NewMatchRule(MatchPrefix, pattern, resp)
}

// Validate checks the MatchRule for required fields and supported values.
func (r MatchRule) Validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("rule pattern must not be empty")
	}
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("rule pattern %q must start with '/'", r.Pattern)
	}
	switch r.Kind {
	case MatchExact, MatchPrefix:
	default:
		return fmt.Errorf("unsupported MatchKind: %d", r.Kind)
	}
	if err := r.Response.Validate(); err != nil {
		return fmt.Errorf("rule %s %q: %w", r.Kind, r.Pattern, err)
	}
	return nil
}

// Matches reports whether path satisfies the rule.
func (r MatchRule) Matches(path string) bool {
	switch r.Kind {
	case MatchExact:
		return path == r.Pattern
	case MatchPrefix:
		return strings.HasPrefix(path, r.Pattern)
	default:
		return false
	}
}

// IsExact returns true when the rule kind is exact.
func (r MatchRule) IsExact() bool { return r.Kind == MatchExact }

// IsPrefix returns true when the rule kind is prefix.
func (r MatchRule) IsPrefix() bool { return r.Kind == MatchPrefix }
