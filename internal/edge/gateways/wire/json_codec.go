package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/haukened/geo-gate/internal/edge/domain"
)

// ErrMissingURI is returned when a request object has no "uri" member.
var ErrMissingURI = errors.New("request has no uri")

// headerValue is the {"value": "..."} wrapper used for every header.
type headerValue struct {
	Value string `json:"value"`
}

type envelope struct {
	Request json.RawMessage `json:"request"`
}

type requestObject struct {
	URI     *string                `json:"uri"`
	Headers map[string]headerValue `json:"headers"`
}

type responseObject struct {
	StatusCode        int                    `json:"statusCode"`
	StatusDescription string                 `json:"statusDescription"`
	Headers           map[string]headerValue `json:"headers"`
	Body              string                 `json:"body"`
}

// jsonCodec implements EventCodec for the CloudFront Functions viewer-request
// event shape: {"request": {"uri": "...", "headers": {"name": {"value": "..."}}}}.
type jsonCodec struct {
	geoHeader string
}

// NewJSONCodec returns an EventCodec that reads the viewer country from geoHeader.
// An empty geoHeader selects domain.ViewerCountryHeader.
func NewJSONCodec(geoHeader string) EventCodec {
	geoHeader = strings.ToLower(strings.TrimSpace(geoHeader))
	if geoHeader == "" {
		geoHeader = domain.ViewerCountryHeader
	}
	return &jsonCodec{geoHeader: geoHeader}
}

// DecodeEvent accepts either the full event envelope or a bare request object.
func (c *jsonCodec) DecodeEvent(data []byte) (Event, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return Event{}, fmt.Errorf("empty event")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if len(env.Request) > 0 && !bytes.Equal(env.Request, []byte("null")) {
		raw = env.Request
	}

	var req requestObject
	if err := json.Unmarshal(raw, &req); err != nil {
		return Event{}, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.URI == nil {
		return Event{}, ErrMissingURI
	}

	headers := make(map[string]string, len(req.Headers))
	for name, hv := range req.Headers {
		headers[strings.ToLower(name)] = hv.Value
	}

	return Event{
		Request: domain.NewRequest(*req.URI, headers[c.geoHeader]),
		Headers: headers,
		raw:     append([]byte(nil), raw...),
	}, nil
}

// EncodeOutcome renders out for the host.
func (c *jsonCodec) EncodeOutcome(ev Event, out domain.Outcome) ([]byte, error) {
	switch out.Kind {
	case domain.OutcomePassThrough:
		if len(ev.raw) == 0 {
			return nil, fmt.Errorf("pass-through outcome for event without a request")
		}
		return ev.Raw(), nil
	case domain.OutcomeSynthetic:
		resp := out.Response
		headers := make(map[string]headerValue)
		for name, value := range resp.Headers() {
			headers[name] = headerValue{Value: value}
		}
		return json.Marshal(responseObject{
			StatusCode:        resp.StatusCode,
			StatusDescription: resp.StatusDescription,
			Headers:           headers,
			Body:              resp.Body,
		})
	default:
		return nil, fmt.Errorf("unsupported outcome kind: %s", out.Kind)
	}
}
