// Package adapter wraps a tool handler in the result-or-diagnostic boundary
// expected by the Trellis orchestrator: one JSON document on stdout and exit
// 0, or one diagnostic line on stderr and exit 1.
package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hyperifyio/trellistools/internal/logging"
	"github.com/hyperifyio/trellistools/internal/toolargs"
)

// DefaultErrorPrefix marks diagnostics written by Go tools.
const DefaultErrorPrefix = "Error in go tool:"

// Handler computes a tool result from decoded arguments. The result is
// encoded as JSON.
type Handler func(v toolargs.Values) (any, error)

// Options tunes Run. The zero value is usable.
type Options struct {
	// ErrorPrefix starts every diagnostic line; defaults to DefaultErrorPrefix.
	ErrorPrefix string
	// Decode overrides convention selection; defaults to toolargs.Decode.
	Decode func(toolargs.Env) (toolargs.Values, error)
	// Logger receives debug events; nil discards them.
	Logger *slog.Logger
}

// Run decodes arguments from env, calls h, and writes the outcome. It returns
// the process exit code. Nothing is written to stdout unless the result was
// fully encoded; panics in h are converted to diagnostics.
func Run(env toolargs.Env, stdout, stderr io.Writer, h Handler, opts Options) int {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	prefix := opts.ErrorPrefix
	if prefix == "" {
		prefix = DefaultErrorPrefix
	}

	out, err := invoke(env, h, opts.Decode, logger)
	if err != nil {
		logger.Debug("tool failed", "err", err)
		writeDiagnostic(stderr, prefix, err)
		return 1
	}
	if _, err := stdout.Write(out); err != nil {
		writeDiagnostic(stderr, prefix, fmt.Errorf("write stdout: %w", err))
		return 1
	}
	logger.Debug("tool succeeded", "bytes", len(out))
	return 0
}

// Main runs h against the live process environment and exits.
func Main(h Handler, opts Options) {
	if opts.Logger == nil {
		opts.Logger = logging.FromEnv(os.LookupEnv, os.Stderr)
	}
	os.Exit(Run(toolargs.OSEnv{}, os.Stdout, os.Stderr, h, opts))
}

func invoke(env toolargs.Env, h Handler, decode func(toolargs.Env) (toolargs.Values, error), logger *slog.Logger) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if decode == nil {
		decode = toolargs.Decode
	}
	values, err := decode(env)
	if err != nil {
		return nil, err
	}
	logger.Debug("arguments decoded", "convention", values.Convention().String())
	result, err := h(values)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDiagnostic(w io.Writer, prefix string, err error) {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if _, werr := fmt.Fprintf(w, "%s %s\n", prefix, msg); werr != nil {
		_ = werr
	}
}
