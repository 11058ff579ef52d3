package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/haukened/geo-gate/internal/edge/common/log"
	"github.com/haukened/geo-gate/internal/edge/domain"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPTransport serves viewer requests over HTTP. Synthetic outcomes are written
// directly; pass-through requests are forwarded unchanged to the origin.
type HTTPTransport struct {
	addr            string
	origin          *url.URL
	geoHeader       string
	shutdownTimeout time.Duration
	logger          log.Logger

	mu       sync.Mutex
	running  bool
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewHTTPTransport validates the origin and returns an idle transport.
//
// The viewer country is read verbatim from geoHeader, which clients can set
// themselves. The transport must only be reachable through the CDN that writes
// that header; exposed directly, any client can claim an allowed country.
func NewHTTPTransport(addr, origin, geoHeader string, shutdownTimeout time.Duration, logger log.Logger) (*HTTPTransport, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be an absolute http(s) URL", origin)
	}
	geoHeader = strings.TrimSpace(geoHeader)
	if geoHeader == "" {
		geoHeader = domain.ViewerCountryHeader
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &HTTPTransport{
		addr:            addr,
		origin:          u,
		geoHeader:       geoHeader,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		done:            make(chan struct{}),
	}, nil
}

// Start binds the listener and serves in the background.
func (t *HTTPTransport) Start(ctx context.Context, c Classifier) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("HTTP transport already running")
	}

	ln, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind HTTP listener on %s: %w", t.addr, err)
	}

	t.listener = ln
	t.server = &http.Server{
		Handler:           t.Handler(c),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	t.running = true
	t.done = make(chan struct{})

	t.logger.Info(map[string]any{
		"transport": string(TransportHTTP),
		"address":   ln.Addr().String(),
		"origin":    t.origin.String(),
	}, "Edge transport started")

	go t.serve(t.server, ln, t.done)
	return nil
}

// serve closes done only on an unexpected failure; each Start gets its own done.
func (t *HTTPTransport) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.logger.Error(map[string]any{"error": err}, "HTTP server stopped unexpectedly")
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		close(done)
	}
}

// Stop drains in-flight requests, waiting at most the shutdown timeout.
func (t *HTTPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false

	ctx, cancel := context.WithTimeout(context.Background(), t.shutdownTimeout)
	defer cancel()

	err := t.server.Shutdown(ctx)
	if err != nil {
		t.logger.Warn(map[string]any{"error": err}, "Error shutting down HTTP server")
	}

	t.logger.Info(map[string]any{
		"transport": string(TransportHTTP),
		"address":   t.listener.Addr().String(),
	}, "Edge transport stopped")
	return err
}

// Address returns the bound address while running, else the configured one.
func (t *HTTPTransport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

// Done returns the channel for the most recent Start; it is closed only if that
// server fails unexpectedly.
func (t *HTTPTransport) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Handler returns the http.Handler that classifies and renders each request.
func (t *HTTPTransport) Handler(c Classifier) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(t.origin)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		t.logger.Warn(map[string]any{
			"path":   r.URL.Path,
			"origin": t.origin.Host,
			"error":  err,
		}, "Origin request failed")
		w.WriteHeader(http.StatusBadGateway)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Escaped form: percent-encoded paths are matched as received.
		req := domain.NewRequest(r.URL.EscapedPath(), r.Header.Get(t.geoHeader))
		out := c.Classify(req)

		t.logger.Debug(map[string]any{
			"path":    req.Path,
			"country": req.Country(),
			"outcome": out.Kind.String(),
		}, "Classified request")

		if out.IsPassThrough() {
			proxy.ServeHTTP(w, r)
			return
		}
		writeSynthetic(w, out.Response, t.logger)
	})
}

// writeSynthetic renders resp. net/http always derives the reason phrase from the
// status code, which NewSyntheticResponse keeps consistent with StatusDescription.
func writeSynthetic(w http.ResponseWriter, resp domain.SyntheticResponse, logger log.Logger) {
	for name, value := range resp.Headers() {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.WriteString(w, resp.Body); err != nil {
		logger.Debug(map[string]any{"error": err}, "Failed to write synthetic response")
	}
}
