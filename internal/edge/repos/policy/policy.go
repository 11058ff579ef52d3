// Package policy loads classifier policies from the embedded built-ins or from
// operator-supplied YAML, JSON or TOML files. Policies are read once at startup.
package policy

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/haukened/geo-gate/internal/edge/domain"
)

// ErrUnknownPolicy is returned when a reference is neither a built-in name nor a policy file.
var ErrUnknownPolicy = errors.New("unknown policy")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Built-in policy names.
const (
	SoftBlock = "geo-soft-block"
	Override  = "geo-override"
	HardBlock = "geo-hard-block"
)

type responseSpec struct {
	Status      int    `koanf:"status"`
	Description string `koanf:"description"`
	ContentType string `koanf:"content_type"`
	Body        string `koanf:"body"`
}

type ruleSpec struct {
	Kind     string `koanf:"kind"`
	Pattern  string `koanf:"pattern"`
	Response string `koanf:"response"`
}

type geoSpec struct {
	AllowedCountries []string `koanf:"allowed_countries"`
	BypassPaths      []string `koanf:"bypass_paths"`
	OnDisallowed     string   `koanf:"on_disallowed"`
}

type document struct {
	Name      string                  `koanf:"name"`
	Responses map[string]responseSpec `koanf:"responses"`
	Rules     []ruleSpec              `koanf:"rules"`
	Geo       geoSpec                 `koanf:"geo"`
}

// BuiltinNames returns the names of the embedded policies in sorted order.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// IsBuiltin reports whether name refers to an embedded policy.
func IsBuiltin(name string) bool {
	for _, n := range BuiltinNames() {
		if n == name {
			return true
		}
	}
	return false
}

// Builtin parses the embedded policy with the given name.
func Builtin(name string) (domain.Policy, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return domain.Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return domain.Policy{}, fmt.Errorf("failed to parse built-in policy %s: %w", name, err)
	}
	return decode(k, "builtin:"+name)
}

// LoadFile parses a policy file, choosing the parser from the file extension.
func LoadFile(path string) (domain.Policy, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return domain.Policy{}, fmt.Errorf("unsupported policy file type: %s", path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return domain.Policy{}, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}
	return decode(k, path)
}

// Load resolves ref as a built-in name first, then as a file path.
func Load(ref string) (domain.Policy, error) {
	ref = strings.TrimSpace(ref)
	if IsBuiltin(ref) {
		return Builtin(ref)
	}
	if _, err := os.Stat(ref); err != nil {
		return domain.Policy{}, fmt.Errorf("%w: %q (built-ins: %s)", ErrUnknownPolicy, ref, strings.Join(BuiltinNames(), ", "))
	}
	return LoadFile(ref)
}

// decode converts the raw document into a validated domain.Policy.
func decode(k *koanf.Koanf, source string) (domain.Policy, error) {
	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return domain.Policy{}, fmt.Errorf("%s: malformed policy: %w", source, err)
	}

	responses := make(map[string]domain.SyntheticResponse, len(doc.Responses))
	for name, spec := range doc.Responses {
		resp, err := domain.NewSyntheticResponse(spec.Status, spec.Description, spec.ContentType, spec.Body)
		if err != nil {
			return domain.Policy{}, fmt.Errorf("%s: response %q: %w", source, name, err)
		}
		responses[name] = resp
	}

	rules := make([]domain.MatchRule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		kind, err := domain.ParseMatchKind(spec.Kind)
		if err != nil {
			return domain.Policy{}, fmt.Errorf("%s: rule %d: %w", source, i, err)
		}
		resp, ok := responses[spec.Response]
		if !ok {
			return domain.Policy{}, fmt.Errorf("%s: rule %d: undefined response %q", source, i, spec.Response)
		}
		rule, err := domain.NewMatchRule(kind, spec.Pattern, resp)
		if err != nil {
			return domain.Policy{}, fmt.Errorf("%s: rule %d: %w", source, i, err)
		}
		rules = append(rules, rule)
	}

	onDisallowed, ok := responses[doc.Geo.OnDisallowed]
	if !ok {
		return domain.Policy{}, fmt.Errorf("%s: geo: undefined on_disallowed response %q", source, doc.Geo.OnDisallowed)
	}
	geo, err := domain.NewGeoPolicy(doc.Geo.AllowedCountries, doc.Geo.BypassPaths, onDisallowed)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("%s: geo: %w", source, err)
	}

	p, err := domain.NewPolicy(doc.Name, rules, geo)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("%s: %w", source, err)
	}
	return p, nil
}
