// Package toolargs implements the environment-based argument contract between
// the Trellis orchestrator and a subprocess tool.
//
// Two conventions exist. The legacy per-argument form passes each argument as
// its own TRELLIS_ARG_<NAME> variable. The bundled form passes every argument
// as one JSON object in TRELLIS_ARGS and takes precedence whenever that
// variable is present, even if empty.
package toolargs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// ArgPrefix prefixes the upper-cased argument name in the per-argument convention.
	ArgPrefix = "TRELLIS_ARG_"
	// BundledVar holds the JSON object of the bundled convention.
	BundledVar = "TRELLIS_ARGS"
)

// Convention identifies how arguments are laid out in the environment.
type Convention int

const (
	// PerArgument passes each argument in its own TRELLIS_ARG_<NAME> variable.
	PerArgument Convention = iota + 1
	// Bundled passes all arguments as one JSON object in TRELLIS_ARGS.
	Bundled
)

func (c Convention) String() string {
	switch c {
	case PerArgument:
		return "per-arg"
	case Bundled:
		return "bundled"
	default:
		return fmt.Sprintf("Convention(%d)", int(c))
	}
}

// ParseConvention accepts the names printed by String plus a few aliases.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per-arg", "per-argument", "perarg", "legacy", "a":
		return PerArgument, nil
	case "bundled", "json", "b":
		return Bundled, nil
	default:
		return 0, fmt.Errorf("unknown convention %q (want per-arg or bundled)", s)
	}
}

// Values is the raw argument view produced by a decoder. Lookup is
// case-insensitive in the argument name.
type Values interface {
	Convention() Convention
	Lookup(name string) (any, bool)
}

// String returns the named argument when it is present as a JSON string (or
// any per-argument variable). Other value types report ok=false.
func String(v Values, name string) (string, bool) {
	raw, ok := v.Lookup(name)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// Decoder turns an environment into Values under one convention.
type Decoder interface {
	Convention() Convention
	Decode(env Env) (Values, error)
}

// NewDecoder returns the decoder for c. Unknown conventions fall back to the
// per-argument decoder.
func NewDecoder(c Convention) Decoder {
	if c == Bundled {
		return bundledDecoder{}
	}
	return perArgDecoder{}
}

// Select picks the decoder for env: bundled when TRELLIS_ARGS is set,
// otherwise per-argument.
func Select(env Env) Decoder {
	if _, ok := env.LookupEnv(BundledVar); ok {
		return bundledDecoder{}
	}
	return perArgDecoder{}
}

// Decode selects a decoder for env and applies it.
func Decode(env Env) (Values, error) {
	return Select(env).Decode(env)
}

// VarName returns the per-argument variable for name. The name is upper-cased
// verbatim; no escaping is applied.
func VarName(name string) string {
	return ArgPrefix + strings.ToUpper(name)
}

type perArgDecoder struct{}

func (perArgDecoder) Convention() Convention { return PerArgument }

func (perArgDecoder) Decode(env Env) (Values, error) {
	return perArgValues{env: env}, nil
}

type perArgValues struct {
	env Env
}

func (perArgValues) Convention() Convention { return PerArgument }

func (p perArgValues) Lookup(name string) (any, bool) {
	v, ok := p.env.LookupEnv(VarName(name))
	if !ok {
		return nil, false
	}
	return v, true
}

type bundledDecoder struct{}

func (bundledDecoder) Convention() Convention { return Bundled }

func (bundledDecoder) Decode(env Env) (Values, error) {
	raw, _ := env.LookupEnv(BundledVar)
	m, err := parseObject(raw)
	if err != nil {
		return nil, &DecodeError{Variable: BundledVar, Err: err}
	}
	return bundledValues(m), nil
}

// parseObject decodes raw as a single JSON object. Blank input and JSON null
// decode to an empty object. Numbers are kept as json.Number.
func parseObject(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

type bundledValues map[string]any

func (bundledValues) Convention() Convention { return Bundled }

// Lookup prefers an exact key. Otherwise the lexically smallest key that
// matches case-insensitively wins, so collisions resolve deterministically.
func (b bundledValues) Lookup(name string) (any, bool) {
	if v, ok := b[name]; ok {
		return v, true
	}
	var matches []string
	for k := range b {
		if strings.EqualFold(k, name) {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)
	return b[matches[0]], true
}
