// Package greet computes the greeting tool's result from decoded arguments.
package greet

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/hyperifyio/trellistools/internal/toolargs"
)

const (
	DefaultName     = "Guest"
	DefaultGreeting = "Hi"

	invalidConfigMessage = "invalid JSON in config"
)

// Args is the fully defaulted argument record. Config is nil when no config
// argument was supplied.
type Args struct {
	Name     string
	Greeting string
	Config   map[string]any
}

// Resolve reads and defaults the greeting arguments. Absent, empty and
// non-string values fall back to the defaults.
func Resolve(v toolargs.Values) Args {
	return Args{
		Name:     stringOr(v, "name", DefaultName),
		Greeting: stringOr(v, "greeting", DefaultGreeting),
		Config:   resolveConfig(v),
	}
}

func stringOr(v toolargs.Values, name, def string) string {
	if s, ok := toolargs.String(v, name); ok && s != "" {
		return s
	}
	return def
}

// resolveConfig accepts either a JSON object value (bundled form) or a string
// holding a JSON object (per-argument form). Anything else is reported back
// inside the config itself rather than failing the tool.
func resolveConfig(v toolargs.Values) map[string]any {
	raw, ok := v.Lookup("config")
	if !ok {
		return nil
	}
	switch t := raw.(type) {
	case map[string]any:
		return t
	case string:
		if t == "" {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(t)))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil || m == nil {
			return map[string]any{"error": invalidConfigMessage, "raw": t}
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return map[string]any{"error": invalidConfigMessage, "raw": t}
		}
		return m
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return map[string]any{"error": invalidConfigMessage}
		}
		return map[string]any{"error": invalidConfigMessage, "raw": string(b)}
	}
}

// debugEnabled reports whether config asks for debug output. Any non-empty
// string counts, as do non-zero numbers and non-empty objects or arrays.
func debugEnabled(config map[string]any) bool {
	switch d := config["debug"].(type) {
	case bool:
		return d
	case string:
		return d != ""
	case json.Number:
		f, err := d.Float64()
		return err == nil && f != 0
	case float64:
		return d != 0
	case map[string]any:
		return len(d) > 0
	case []any:
		return len(d) > 0
	default:
		return false
	}
}
