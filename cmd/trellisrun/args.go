package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/trellistools/internal/logging"
	"github.com/hyperifyio/trellistools/internal/toolargs"
)

// addArgFlags registers the flags shared by commands that build tool arguments.
func addArgFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("arg", nil, "Argument NAME=VALUE passed as a string (repeatable)")
	cmd.Flags().StringArray("arg-json", nil, "Argument NAME=JSON decoded before passing (repeatable)")
	cmd.Flags().String("args-json", "", "JSON object holding base arguments")
	cmd.Flags().String("convention", "", "Argument convention: per-arg | bundled")
}

// collectArgs merges --args-json, then --arg-json, then --arg; later sources win.
func collectArgs(cmd *cobra.Command) (map[string]any, error) {
	args := map[string]any{}
	if raw, _ := cmd.Flags().GetString("args-json"); strings.TrimSpace(raw) != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var base map[string]any
		if err := dec.Decode(&base); err != nil || base == nil {
			return nil, fmt.Errorf("--args-json must be a JSON object")
		}
		for k, v := range base {
			args[k] = v
		}
	}
	jsonPairs, _ := cmd.Flags().GetStringArray("arg-json")
	for _, pair := range jsonPairs {
		k, raw, err := splitPair(pair, "--arg-json")
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("--arg-json %s: %v", k, err)
		}
		args[k] = v
	}
	pairs, _ := cmd.Flags().GetStringArray("arg")
	for _, pair := range pairs {
		k, v, err := splitPair(pair, "--arg")
		if err != nil {
			return nil, err
		}
		args[k] = v
	}
	return args, nil
}

func splitPair(pair, flag string) (string, string, error) {
	k, v, ok := strings.Cut(pair, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return "", "", fmt.Errorf("%s expects NAME=VALUE, got %q", flag, pair)
	}
	return strings.TrimSpace(k), v, nil
}

// conventionFlag returns the --convention value, or 0 when unset.
func conventionFlag(cmd *cobra.Command) (toolargs.Convention, error) {
	raw, _ := cmd.Flags().GetString("convention")
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return toolargs.ParseConvention(raw)
}

func noColor(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("no-color")
	return v || color.NoColor
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	return logging.New(cmd.ErrOrStderr(), level, noColor(cmd))
}
