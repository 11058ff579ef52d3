package domain

import (
	"fmt"
	"net/http"

	"golang.org/x/net/http/httpguts"
)

// ContentTypeText is the content type used by every observed synthetic response.
const ContentTypeText = "text/plain"

// SyntheticResponse is a fully formed response fabricated at the edge instead of
// contacting the origin. Pure value type; the body is static text with no templating.
type SyntheticResponse struct {
	StatusCode        int
	StatusDescription string
	ContentType       string
	Body              string
}

// NewSyntheticResponse builds and validates a SyntheticResponse.
// An empty description is filled from the status code, an empty content type
// defaults to ContentTypeText.
func NewSyntheticResponse(code int, description, contentType, body string) (SyntheticResponse, error) {
	if description == "" {
		description = http.StatusText(code)
	}
	if contentType == "" {
		contentType = ContentTypeText
	}
	r := SyntheticResponse{
		StatusCode:        code,
		StatusDescription: description,
		ContentType:       contentType,
		Body:              body,
	}
	if err := r.Validate(); err != nil {
		return SyntheticResponse{}, err
	}
	return r, nil
}

// Validate checks the status line and content type.
func (r SyntheticResponse) Validate() error {
	if r.StatusCode < 100 || r.StatusCode > 599 {
		return fmt.Errorf("status code %d out of range", r.StatusCode)
	}
	if r.StatusDescription == "" {
		return fmt.Errorf("status description must not be empty")
	}
	// Known codes must carry their canonical reason phrase.
	if known := http.StatusText(r.StatusCode); known != "" && known != r.StatusDescription {
		return fmt.Errorf("status description %q inconsistent with %d (%q)", r.StatusDescription, r.StatusCode, known)
	}
	if r.ContentType == "" || !httpguts.ValidHeaderFieldValue(r.ContentType) {
		return fmt.Errorf("invalid content type %q", r.ContentType)
	}
	return nil
}

// Headers returns the response headers keyed by lower-cased name.
// A fresh map is returned on each call so callers cannot mutate shared state.
func (r SyntheticResponse) Headers() map[string]string {
	return map[string]string{"content-type": r.ContentType}
}
