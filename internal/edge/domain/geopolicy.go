package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// UnknownCountry is the country code used when the geo-signal is missing or empty.
// It is never a valid member of an allowed-country set, so a missing signal always
// lands on the disallowed branch.
const UnknownCountry = "UNKNOWN"

var (
	// ErrEmptyAllowedCountries is returned when a policy allows no country at all.
	ErrEmptyAllowedCountries = errors.New("allowed countries must not be empty")
	// ErrInvalidCountryCode is returned for anything that is not an ISO-3166-1 alpha-2 code.
	ErrInvalidCountryCode = errors.New("invalid country code")
)

// GeoPolicy decides whether a viewer country may reach the origin.
// The zero value is not usable; construct with NewGeoPolicy.
type GeoPolicy struct {
	allowed      map[string]struct{}
	bypass       map[string]struct{}
	onDisallowed SyntheticResponse
}

// NewGeoPolicy validates and builds a GeoPolicy.
//
// Country codes are trimmed and upper-cased, then must be exactly two letters A-Z.
// Bypass paths are exact paths and must start with '/'.
func NewGeoPolicy(allowedCountries, bypassPaths []string, onDisallowed SyntheticResponse) (GeoPolicy, error) {
	if len(allowedCountries) == 0 {
		return GeoPolicy{}, ErrEmptyAllowedCountries
	}
	allowed := make(map[string]struct{}, len(allowedCountries))
	for _, raw := range allowedCountries {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if !isAlpha2(code) {
			return GeoPolicy{}, fmt.Errorf("%w: %q", ErrInvalidCountryCode, raw)
		}
		allowed[code] = struct{}{}
	}

	bypass := make(map[string]struct{}, len(bypassPaths))
	for _, p := range bypassPaths {
		if !strings.HasPrefix(p, "/") {
			return GeoPolicy{}, fmt.Errorf("bypass path %q must start with '/'", p)
		}
		bypass[p] = struct{}{}
	}

	if err := onDisallowed.Validate(); err != nil {
		return GeoPolicy{}, fmt.Errorf("on_disallowed: %w", err)
	}

	return GeoPolicy{allowed: allowed, bypass: bypass, onDisallowed: onDisallowed}, nil
}

// Allows reports whether the resolved country code is in the allowed set.
func (p GeoPolicy) Allows(code string) bool {
	_, ok := p.allowed[code]
	return ok
}

// IsBypass reports whether path is exempt from geo enforcement.
func (p GeoPolicy) IsBypass(path string) bool {
	_, ok := p.bypass[path]
	return ok
}

// OnDisallowed returns the response served to disallowed or unknown countries.
func (p GeoPolicy) OnDisallowed() SyntheticResponse { return p.onDisallowed }

// AllowedCountries returns the allowed codes in sorted order.
func (p GeoPolicy) AllowedCountries() []string { return sortedKeys(p.allowed) }

// BypassPaths returns the bypass paths in sorted order.
func (p GeoPolicy) BypassPaths() []string { return sortedKeys(p.bypass) }

// Validate reports whether the policy was built through NewGeoPolicy.
func (p GeoPolicy) Validate() error {
	if len(p.allowed) == 0 {
		return ErrEmptyAllowedCountries
	}
	return p.onDisallowed.Validate()
}

func isAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
