package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/haukened/geo-gate/internal/edge/common/log"
	"github.com/haukened/geo-gate/internal/edge/gateways/wire"
)

// Options carries everything any transport may need.
type Options struct {
	Type            TransportType
	Addr            string
	Origin          string
	GeoHeader       string
	ShutdownTimeout time.Duration
	In              io.Reader
	Out             io.Writer
	Logger          log.Logger
}

// NewTransport creates a transport of the requested type.
func NewTransport(opts Options) (ServerTransport, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	switch opts.Type {
	case TransportHTTP:
		return NewHTTPTransport(opts.Addr, opts.Origin, opts.GeoHeader, opts.ShutdownTimeout, opts.Logger)
	case TransportEvent:
		if opts.In == nil || opts.Out == nil {
			return nil, fmt.Errorf("event transport requires input and output streams")
		}
		return NewEventTransport(opts.In, opts.Out, wire.NewJSONCodec(opts.GeoHeader), opts.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", opts.Type)
	}
}

// GetSupportedTransports returns the transport types NewTransport accepts.
func GetSupportedTransports() []TransportType {
	return []TransportType{TransportHTTP, TransportEvent}
}

// IsTransportSupported checks if a given transport type is supported.
func IsTransportSupported(transportType TransportType) bool {
	for _, t := range GetSupportedTransports() {
		if t == transportType {
			return true
		}
	}
	return false
}
