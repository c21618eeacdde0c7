package toolargs

import (
	"os"
	"strings"
)

// Env is a read-only view of a process environment.
type Env interface {
	LookupEnv(key string) (string, bool)
}

// OSEnv reads the live process environment.
type OSEnv struct{}

// LookupEnv calls os.LookupEnv.
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// MapEnv is an in-memory environment snapshot.
type MapEnv map[string]string

// LookupEnv reports the value stored under key.
func (m MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ParseEnviron builds a MapEnv from KEY=VALUE entries in the form returned by
// os.Environ. Later duplicates win; entries without '=' are skipped.
func ParseEnviron(entries []string) MapEnv {
	m := make(MapEnv, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	return m
}
