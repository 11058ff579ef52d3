// Package transport delivers requests to the classifier and renders its outcomes.
// Transports own all protocol concerns; the classifier only sees domain values.
package transport

import (
	"context"

	"github.com/haukened/geo-gate/internal/edge/domain"
)

// ServerTransport is implemented by every request source.
type ServerTransport interface {
	// Start begins accepting requests and classifying them with c.
	Start(ctx context.Context, c Classifier) error
	// Stop shuts the transport down and releases its resources.
	Stop() error
	// Address describes where the transport receives requests.
	Address() string
	// Done is closed when the transport stops on its own, for example at end of input.
	Done() <-chan struct{}
}

// Classifier is the service-layer contract a transport depends on.
type Classifier interface {
	Classify(req domain.Request) domain.Outcome
}

// TransportType names a supported transport.
type TransportType string

const (
	// TransportHTTP serves HTTP and reverse-proxies pass-through requests to the origin.
	TransportHTTP TransportType = "http"
	// TransportEvent reads newline-delimited host events and writes one encoded outcome per line.
	TransportEvent TransportType = "event"
)
