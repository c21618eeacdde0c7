package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperifyio/trellistools/internal/toolargs"
)

// ToolSpec describes one subprocess tool the invoker may run.
type ToolSpec struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Command     []string `json:"command" yaml:"command" toml:"command"` // argv: program and args
	// ConventionName selects how arguments are passed: "per-arg" or
	// "bundled" (default). Parsed into Convention by LoadManifest.
	ConventionName string `json:"convention,omitempty" yaml:"convention,omitempty" toml:"convention,omitempty"`
	TimeoutSec     int    `json:"timeoutSec,omitempty" yaml:"timeoutSec,omitempty" toml:"timeoutSec,omitempty"`
	// EnvPassthrough is an allowlist of environment variable names that may be
	// passed through from the parent process to the tool process. Names are
	// normalized to upper case, trimmed, validated against [A-Z_][A-Z0-9_]*,
	// and de-duplicated while preserving order.
	EnvPassthrough []string `json:"envPassthrough,omitempty" yaml:"envPassthrough,omitempty" toml:"envPassthrough,omitempty"`

	Convention toolargs.Convention `json:"-" yaml:"-" toml:"-"`
}

type Manifest struct {
	Tools []ToolSpec `json:"tools" yaml:"tools" toml:"tools"`
}

// LoadManifest reads a tools manifest and returns a name->spec registry along
// with the specs in file order. The format follows the extension: .yaml/.yml,
// .toml, anything else is JSON. Relative command paths are resolved against
// the manifest's directory; bare program names are left for PATH lookup.
func LoadManifest(manifestPath string) (map[string]ToolSpec, []ToolSpec, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	var man Manifest
	switch strings.ToLower(filepath.Ext(manifestPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &man)
	case ".toml":
		err = toml.Unmarshal(data, &man)
	default:
		err = json.Unmarshal(data, &man)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse manifest: %w", err)
	}

	registry := make(map[string]ToolSpec, len(man.Tools))
	ordered := make([]ToolSpec, 0, len(man.Tools))
	manifestDir := filepath.Dir(manifestPath)
	for i, t := range man.Tools {
		if strings.TrimSpace(t.Name) == "" {
			return nil, nil, fmt.Errorf("tool[%d]: name is required", i)
		}
		if _, ok := registry[t.Name]; ok {
			return nil, nil, fmt.Errorf("tool[%d] %q: duplicate name", i, t.Name)
		}
		if len(t.Command) < 1 || strings.TrimSpace(t.Command[0]) == "" {
			return nil, nil, fmt.Errorf("tool[%d] %q: command must have at least program name", i, t.Name)
		}
		if t.TimeoutSec < 0 {
			return nil, nil, fmt.Errorf("tool[%d] %q: timeoutSec must not be negative", i, t.Name)
		}
		t.Convention = toolargs.Bundled
		if strings.TrimSpace(t.ConventionName) != "" {
			c, err := toolargs.ParseConvention(t.ConventionName)
			if err != nil {
				return nil, nil, fmt.Errorf("tool[%d] %q: %v", i, t.Name, err)
			}
			t.Convention = c
		}
		if len(t.EnvPassthrough) > 0 {
			norm, err := normalizeEnvAllowlist(t.EnvPassthrough)
			if err != nil {
				return nil, nil, fmt.Errorf("tool[%d] %q: %v", i, t.Name, err)
			}
			t.EnvPassthrough = norm
		}
		cmd0, err := resolveProgram(manifestDir, t.Command[0])
		if err != nil {
			return nil, nil, fmt.Errorf("tool[%d] %q: %v", i, t.Name, err)
		}
		t.Command = append([]string{cmd0}, t.Command[1:]...)
		registry[t.Name] = t
		ordered = append(ordered, t)
	}
	return registry, ordered, nil
}

// resolveProgram leaves absolute paths and bare names untouched. Relative
// paths are cleaned, must not escape the manifest directory, and are made
// absolute against it so runs do not depend on the process working directory.
func resolveProgram(manifestDir, cmd0 string) (string, error) {
	if filepath.IsAbs(cmd0) {
		return cmd0, nil
	}
	raw := strings.ReplaceAll(cmd0, "\\", "/")
	if !strings.Contains(raw, "/") {
		return cmd0, nil
	}
	norm := path.Clean(raw)
	if norm == ".." || strings.HasPrefix(norm, "../") {
		return "", fmt.Errorf("command[0] must not escape the manifest directory (got %q)", cmd0)
	}
	abs, err := filepath.Abs(filepath.Join(manifestDir, filepath.FromSlash(norm)))
	if err != nil {
		return "", fmt.Errorf("resolve command[0]: %v", err)
	}
	return abs, nil
}

// normalizeEnvAllowlist normalizes, validates, and de-duplicates environment
// variable names. Names reserved for the argument contract are rejected so a
// passthrough cannot override the arguments of a call.
func normalizeEnvAllowlist(keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	seen := mapset.NewThreadUnsafeSet[string]()
	for idx, k := range keys {
		trimmed := strings.TrimSpace(k)
		if trimmed == "" {
			return nil, fmt.Errorf("envPassthrough[%d]: empty name", idx)
		}
		upper := strings.ToUpper(trimmed)
		if !isValidEnvName(upper) {
			return nil, fmt.Errorf("envPassthrough[%d]: invalid name %q (must match [A-Z_][A-Z0-9_]*)", idx, k)
		}
		if isReservedEnvName(upper) {
			return nil, fmt.Errorf("envPassthrough[%d]: %q is reserved for tool arguments", idx, k)
		}
		if !seen.Add(upper) {
			continue
		}
		out = append(out, upper)
	}
	return out, nil
}

func isReservedEnvName(s string) bool {
	return s == toolargs.BundledVar || strings.HasPrefix(s, toolargs.ArgPrefix)
}

func isValidEnvName(s string) bool {
	if len(s) == 0 {
		return false
	}
	c := s[0]
	if !((c >= 'A' && c <= 'Z') || c == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		c = s[i]
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}
