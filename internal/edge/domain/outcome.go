package domain

import "fmt"

// OutcomeKind tags which branch of Outcome is populated.
// The zero value is not a valid kind, so an unset Outcome never reads as pass-through.
type OutcomeKind uint8

const (
	// OutcomePassThrough instructs the host to continue normal handling.
	OutcomePassThrough OutcomeKind = iota + 1
	// OutcomeSynthetic instructs the host to return Response instead of contacting the origin.
	OutcomeSynthetic
)

// String returns a stable string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomePassThrough:
		return "pass_through"
	case OutcomeSynthetic:
		return "synthetic"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// Outcome is the result of classifying one request.
// Pure value type, no external dependencies.
type Outcome struct {
	Kind     OutcomeKind
	Request  Request           // set for OutcomePassThrough
	Response SyntheticResponse // set for OutcomeSynthetic
}

// PassThrough returns an outcome carrying the original request unchanged.
func PassThrough(req Request) Outcome {
	return Outcome{Kind: OutcomePassThrough, Request: req}
}

// Synthetic returns an outcome carrying a fabricated response.
func Synthetic(resp SyntheticResponse) Outcome {
	return Outcome{Kind: OutcomeSynthetic, Response: resp}
}

// IsPassThrough is a convenience accessor.
func (o Outcome) IsPassThrough() bool { return o.Kind == OutcomePassThrough }

// IsSynthetic is a convenience accessor.
func (o Outcome) IsSynthetic() bool { return o.Kind == OutcomeSynthetic }
