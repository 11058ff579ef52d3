package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/net/http/httpguts"

	"github.com/haukened/geo-gate/internal/edge/domain"
	"github.com/haukened/geo-gate/internal/edge/repos/policy"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the TCP port the HTTP transport binds to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// Transport selects how requests arrive: "http" or "event".
	Transport string `koanf:"transport" validate:"required,oneof=http event"`

	// Origin is the upstream that receives pass-through requests.
	Origin string `koanf:"origin" validate:"required,url"`

	// Policy is a built-in policy name or a path to a policy file.
	Policy string `koanf:"policy" validate:"required,policy_ref"`

	// GeoHeader is the header carrying the viewer-country signal. It is trusted as
	// received, so the HTTP transport must only be reachable through the CDN that
	// sets it.
	GeoHeader string `koanf:"geo_header" validate:"required,http_header"`

	// ShutdownTimeout bounds how long the HTTP transport drains in-flight requests.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DEFAULT_APP_CONFIG defines the configuration used when no environment override is present.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	Port:            8080,
	Transport:       "http",
	Origin:          "http://127.0.0.1:8081",
	Policy:          policy.SoftBlock,
	GeoHeader:       domain.ViewerCountryHeader,
	ShutdownTimeout: 10 * time.Second,
}

// validHTTPHeader accepts a syntactically valid HTTP header field name.
func validHTTPHeader(fl validator.FieldLevel) bool {
	return httpguts.ValidHeaderFieldName(fl.Field().String())
}

// validPolicyRef accepts a built-in policy name or a path with a supported policy file extension.
// Whether the file exists is checked when the policy is loaded.
func validPolicyRef(fl validator.FieldLevel) bool {
	ref := strings.TrimSpace(fl.Field().String())
	if policy.IsBuiltin(ref) {
		return true
	}
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	default:
		return false
	}
}

// envLoader loads environment variables with the prefix "GATE_", lower-casing
// keys and trimming values. It is a variable so tests can replace it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "GATE_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "GATE_")), strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "http_header" and "policy_ref" tags.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("http_header", validHTTPHeader); err != nil {
		return err
	}
	return v.RegisterValidation("policy_ref", validPolicyRef)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.GeoHeader = strings.ToLower(cfg.GeoHeader)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
