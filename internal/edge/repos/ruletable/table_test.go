package ruletable

import (
	"fmt"
	"testing"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/geo-gate/internal/edge/domain"
)

func mustResponse(t testing.TB, code int, body string) domain.SyntheticResponse {
	t.Helper()
	r, err := domain.NewSyntheticResponse(code, "", domain.ContentTypeText, body)
	require.NoError(t, err)
	return r
}

func mustRule(t testing.TB, kind domain.MatchKind, pattern string, resp domain.SyntheticResponse) domain.MatchRule {
	t.Helper()
	r, err := domain.NewMatchRule(kind, pattern, resp)
	require.NoError(t, err)
	return r
}

// scan is the reference first-match evaluation without the prefilter.
func scan(rules []domain.MatchRule, path string) (domain.MatchRule, bool) {
	for _, r := range rules {
		if r.Matches(path) {
			return r, true
		}
	}
	return domain.MatchRule{}, false
}

func TestNew_RejectsInvalidRule(t *testing.T) {
	ok := mustResponse(t, 200, "x")
	_, err := New([]domain.MatchRule{
		mustRule(t, domain.MatchExact, "/a", ok),
		{Kind: domain.MatchPrefix, Pattern: "", Response: ok},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 1")
}

func TestMatch_FirstMatchWins(t *testing.T) {
	first := mustResponse(t, 200, "first")
	second := mustResponse(t, 301, "second")

	tbl, err := New([]domain.MatchRule{
		mustRule(t, domain.MatchPrefix, "/api/", first),
		mustRule(t, domain.MatchExact, "/api/v1", second),
	})
	require.NoError(t, err)

	r, ok := tbl.Match("/api/v1")
	require.True(t, ok)
	assert.Equal(t, first, r.Response)
}

func TestMatch_ExactAndPrefixCoexist(t *testing.T) {
	exactResp := mustResponse(t, 200, "exact")
	prefixResp := mustResponse(t, 301, "prefix")

	tbl, err := New([]domain.MatchRule{
		mustRule(t, domain.MatchExact, "/wp-content", exactResp),
		mustRule(t, domain.MatchPrefix, "/wp-content/", prefixResp),
	})
	require.NoError(t, err)

	r, ok := tbl.Match("/wp-content")
	require.True(t, ok)
	assert.Equal(t, exactResp, r.Response)

	r, ok = tbl.Match("/wp-content/anything")
	require.True(t, ok)
	assert.Equal(t, prefixResp, r.Response)

	_, ok = tbl.Match("/wp-contents")
	assert.False(t, ok)
}

func TestMatch_NoRules(t *testing.T) {
	tbl, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Match("/anything")
	assert.False(t, ok)
}

func TestMatch_PrefixOnlyTable(t *testing.T) {
	resp := mustResponse(t, 301, "Nothing to see here")
	tbl, err := New([]domain.MatchRule{mustRule(t, domain.MatchPrefix, "//", resp)})
	require.NoError(t, err)

	r, ok := tbl.Match("//evil")
	require.True(t, ok)
	assert.Equal(t, "//", r.Pattern)
}

func TestMatch_AgreesWithPlainScan(t *testing.T) {
	resp := mustResponse(t, 200, "x")
	var rules []domain.MatchRule
	for i := 0; i < 40; i++ {
		rules = append(rules, mustRule(t, domain.MatchExact, fmt.Sprintf("/exact-%d", i), resp))
		if i%5 == 0 {
			rules = append(rules, mustRule(t, domain.MatchPrefix, fmt.Sprintf("/pre-%d/", i), resp))
		}
	}
	tbl, err := New(rules)
	require.NoError(t, err)

	paths := []string{"", "/", "//", "\x00", "/exact-0", "/exact-39", "/exact-40", "/pre-5/x", "/pre-6/x", "/EXACT-1"}
	for i := 0; i < 200; i++ {
		paths = append(paths, fmt.Sprintf("/exact-%d", i), fmt.Sprintf("/pre-%d/deep/%d", i, i))
	}
	for _, p := range paths {
		want, wantOK := scan(rules, p)
		got, gotOK := tbl.Match(p)
		assert.Equal(t, wantOK, gotOK, "path %q", p)
		assert.Equal(t, want, got, "path %q", p)
	}
}

func TestRules_ReturnsCopy(t *testing.T) {
	resp := mustResponse(t, 200, "x")
	in := []domain.MatchRule{mustRule(t, domain.MatchExact, "/a", resp)}
	tbl, err := New(in)
	require.NoError(t, err)

	in[0].Pattern = "/changed"
	out := tbl.Rules()
	out[0].Pattern = "/also-changed"

	r, ok := tbl.Match("/a")
	require.True(t, ok)
	assert.Equal(t, "/a", r.Pattern)
	assert.Equal(t, "/a", tbl.Rules()[0].Pattern)
}

func TestNew_SizesExactFilterFromExactRulesOnly(t *testing.T) {
	resp := mustResponse(t, 200, "x")
	tbl, err := New([]domain.MatchRule{
		mustRule(t, domain.MatchExact, "/a", resp),
		mustRule(t, domain.MatchPrefix, "/p/", resp),
		mustRule(t, domain.MatchExact, "/b", resp),
		mustRule(t, domain.MatchExact, "/c", resp),
	})
	require.NoError(t, err)
	require.NotNil(t, tbl.exact)

	m, k := bitsbloom.EstimateParameters(3, defaultFPRate)
	assert.Equal(t, m, tbl.exact.Cap())
	assert.Equal(t, k, tbl.exact.K())
	for _, p := range []string{"/a", "/b", "/c"} {
		assert.True(t, tbl.exact.TestString(p), p)
	}
}
