// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/hyperifyio/trellistools/internal/version.Version=v1.2.3"
package version

import (
	"fmt"
	"io"
	"strings"
)

// Build-time variables; defaults are useful for dev builds.
var (
	Version   = "v0.0.0-dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns a concise single-line version string for the named program.
func String(program string) string {
	return fmt.Sprintf("%s version %s (commit %s, built %s)", program, Version, ShortCommit(Commit), BuildDate)
}

// Print writes String(program) followed by a newline.
func Print(w io.Writer, program string) {
	if _, err := fmt.Fprintln(w, String(program)); err != nil {
		_ = err
	}
}

// Requested reports whether argv (without program name) asks for the version.
func Requested(args []string) bool {
	for _, a := range args {
		switch a {
		case "--version", "-version":
			return true
		}
	}
	return false
}

func ShortCommit(c string) string {
	c = strings.TrimSpace(c)
	if len(c) > 7 {
		return c[:7]
	}
	if c == "" {
		return "unknown"
	}
	return c
}
