// Command greet_js runs the JavaScript rendition of the greeting tool inside
// an embedded goja VM. It honours the same argument contract as greet.
package main

import (
	"context"
	_ "embed"
	"os"

	"github.com/hyperifyio/trellistools/internal/logging"
	"github.com/hyperifyio/trellistools/internal/sandbox"
	"github.com/hyperifyio/trellistools/internal/tools/jsrun"
	"github.com/hyperifyio/trellistools/internal/version"
)

//go:embed greet.js
var source string

func main() {
	if version.Requested(os.Args[1:]) {
		version.Print(os.Stdout, "greet_js")
		return
	}
	logger := logging.FromEnv(os.LookupEnv, os.Stderr)

	res := jsrun.Run(context.Background(), jsrun.Script{
		Name:        "greet.js",
		Source:      source,
		ErrorPrefix: "Error in js tool:",
	}, os.Environ(), sandbox.Limits{WallMS: 2000})
	logger.Debug("script finished", "exit", res.ExitCode, "stdoutBytes", len(res.Stdout))

	// Only a successful run may publish stdout.
	if res.ExitCode == 0 {
		if _, err := os.Stdout.Write(res.Stdout); err != nil {
			os.Exit(1)
		}
	}
	if len(res.Stderr) > 0 {
		if _, err := os.Stderr.Write(res.Stderr); err != nil {
			_ = err
		}
	}
	os.Exit(res.ExitCode)
}
