package domain

import "strings"

// ViewerCountryHeader is the lower-cased header carrying the trusted viewer-country signal.
const ViewerCountryHeader = "cloudfront-viewer-country"

// Request is the normalized, read-only view of an inbound request.
type Request struct {
	// Path is the URI path with no query string.
	Path string
	// GeoCountryCode is the raw geo-signal value; empty means absent.
	GeoCountryCode string
}

// NewRequest builds a Request from a raw URI and geo-signal value.
// Anything from the first '?' onward is dropped; nothing else is normalized.
func NewRequest(uri, countryCode string) Request {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	return Request{Path: uri, GeoCountryCode: countryCode}
}

// ResolveCountry maps an absent or empty geo-signal to UnknownCountry.
// Any other value is returned untouched and judged by the allowed set.
func ResolveCountry(code string) string {
	if code == "" {
		return UnknownCountry
	}
	return code
}

// Country returns the resolved country code of the request.
func (r Request) Country() string { return ResolveCountry(r.GeoCountryCode) }
