package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/haukened/geo-gate/internal/edge/common/log"
	"github.com/haukened/geo-gate/internal/edge/config"
	"github.com/haukened/geo-gate/internal/edge/gateways/transport"
	"github.com/haukened/geo-gate/internal/edge/repos/policy"
	"github.com/haukened/geo-gate/internal/edge/services/classifier"
)

const (
	version = "0.1.0-dev"
	appName = "geo-gated"
)

// Application holds all the components of the edge gate.
type Application struct {
	config     *config.AppConfig
	transport  transport.ServerTransport
	classifier *classifier.Classifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.GetLogger().Sync() }()

	log.Info(map[string]any{
		"app":       appName,
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"transport": cfg.Transport,
		"policy":    cfg.Policy,
	}, "Starting geo-gate")

	app, err := buildApplication(cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "geo-gate stopped gracefully")
}

// buildApplication loads the policy, compiles the classifier and creates the transport.
// in and out are only used by the event transport.
func buildApplication(cfg *config.AppConfig, in io.Reader, out io.Writer) (*Application, error) {
	logger := log.GetLogger()

	p, err := policy.Load(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	c, err := classifier.New(p)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	log.Info(map[string]any{
		"policy":            c.PolicyName(),
		"rules":             c.RuleCount(),
		"allowed_countries": p.Geo.AllowedCountries(),
		"bypass_paths":      p.Geo.BypassPaths(),
		"on_disallowed":     p.Geo.OnDisallowed().StatusCode,
	}, "Policy loaded")

	tr, err := transport.NewTransport(transport.Options{
		Type:            transport.TransportType(cfg.Transport),
		Addr:            fmt.Sprintf(":%d", cfg.Port),
		Origin:          cfg.Origin,
		GeoHeader:       cfg.GeoHeader,
		ShutdownTimeout: cfg.ShutdownTimeout,
		In:              in,
		Out:             out,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Application{
		config:     cfg,
		transport:  tr,
		classifier: c,
	}, nil
}

// Run starts the transport and blocks until ctx is cancelled or the transport finishes.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.classifier); err != nil {
		return fmt.Errorf("failed to start %s transport: %w", app.config.Transport, err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": app.config.Transport,
	}, "geo-gate started")

	select {
	case <-ctx.Done():
		log.Info(nil, "Shutdown initiated")
	case <-app.transport.Done():
		log.Info(nil, "Transport finished")
	}

	if err := app.transport.Stop(); err != nil {
		return fmt.Errorf("transport shutdown: %w", err)
	}
	return nil
}
