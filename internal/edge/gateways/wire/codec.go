// Package wire converts host events to domain requests and domain outcomes back to host responses.
package wire

import "github.com/haukened/geo-gate/internal/edge/domain"

// EventCodec translates between the host's event format and domain values.
type EventCodec interface {
	// DecodeEvent parses one host event into an Event holding the normalized request.
	DecodeEvent(data []byte) (Event, error)
	// EncodeOutcome renders the outcome for ev: the original request on pass-through,
	// or a response object for a synthetic outcome.
	EncodeOutcome(ev Event, out domain.Outcome) ([]byte, error)
}

// Event is a decoded host event.
type Event struct {
	Request domain.Request
	// Headers are keyed by lower-cased name.
	Headers map[string]string
	// raw is the original request object, returned untouched on pass-through.
	raw []byte
}

// Raw returns a copy of the original request object.
func (e Event) Raw() []byte {
	return append([]byte(nil), e.raw...)
}
