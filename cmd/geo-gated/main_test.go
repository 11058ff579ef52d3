package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/geo-gate/internal/edge/config"
	"github.com/haukened/geo-gate/internal/edge/repos/policy"
)

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())
	return port
}

func TestApplication_EventTransport(t *testing.T) {
	t.Setenv("GATE_TRANSPORT", "event")
	t.Setenv("GATE_POLICY", policy.HardBlock)
	cfg, err := config.Load()
	require.NoError(t, err)

	in := strings.NewReader(strings.Join([]string{
		`{"request":{"uri":"/ads.txt","headers":{"cloudfront-viewer-country":{"value":"DE"}}}}`,
		`{"request":{"uri":"/dashboard","headers":{"cloudfront-viewer-country":{"value":"DE"}}}}`,
	}, "\n"))
	var out bytes.Buffer

	app, err := buildApplication(cfg, in, &out)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("application did not finish at end of input")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"uri":"/ads.txt","headers":{"cloudfront-viewer-country":{"value":"DE"}}}`, lines[0])
	assert.Contains(t, lines[1], `"statusCode":403`)
	assert.Contains(t, lines[1], `"statusDescription":"Forbidden"`)
}

func TestApplication_HTTPLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "from origin")
	}))
	defer origin.Close()

	port := freePort(t)
	t.Setenv("GATE_PORT", fmt.Sprintf("%d", port))
	t.Setenv("GATE_ORIGIN", origin.URL)
	t.Setenv("GATE_POLICY", policy.Override)
	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	appErr := make(chan error, 1)
	go func() { appErr <- app.Run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	get := func(path, country string) (int, string) {
		req, err := http.NewRequest(http.MethodGet, base+path, nil)
		require.NoError(t, err)
		if country != "" {
			req.Header.Set("CloudFront-Viewer-Country", country)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	code, body := get("/dashboard", "CA")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "from origin", body)

	code, body = get("/api/users", "CA")
	assert.Equal(t, http.StatusMovedPermanently, code)
	assert.Equal(t, "Nothing to see here", body)

	code, body = get("/dashboard", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "your country is restricted")

	cancel()
	select {
	case err := <-appErr:
		assert.NoError(t, err, "Application should shutdown gracefully")
	case <-time.After(5 * time.Second):
		t.Fatal("Application failed to shutdown within timeout")
	}
}

func TestBuildApplication_Errors(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(cfg *config.AppConfig)
		errorContains string
	}{
		{
			name:          "missing policy file",
			mutate:        func(cfg *config.AppConfig) { cfg.Policy = "/nonexistent/policy.yaml" },
			errorContains: "failed to load policy",
		},
		{
			name:          "event transport without streams",
			mutate:        func(cfg *config.AppConfig) { cfg.Transport = "event" },
			errorContains: "failed to create transport",
		},
		{
			name:          "unsupported origin",
			mutate:        func(cfg *config.AppConfig) { cfg.Origin = "ftp://origin" },
			errorContains: "failed to create transport",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			_, err = buildApplication(cfg, nil, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestBuildApplication_PolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: edge
responses:
  deny: {status: 403, body: denied}
rules:
  - {kind: prefix, pattern: /private/, response: deny}
geo:
  allowed_countries: [US]
  on_disallowed: deny
`), 0o644))

	t.Setenv("GATE_POLICY", path)
	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "edge", app.classifier.PolicyName())
	assert.Equal(t, 1, app.classifier.RuleCount())
}

func TestApplication_RunStartError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()

	t.Setenv("GATE_PORT", fmt.Sprintf("%d", busy.Addr().(*net.TCPAddr).Port))
	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg, nil, nil)
	require.NoError(t, err)

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start http transport")
}
