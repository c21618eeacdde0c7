// Command trellisrun plays the orchestrator's side of the Trellis tool
// argument contract for local development: it runs one tool from a manifest
// with arguments encoded under either convention and prints the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/trellistools/internal/version"
)

func main() {
	os.Exit(cliMain(os.Args[1:], os.Stdout, os.Stderr))
}

// cliMain is a testable entrypoint. It returns the intended process exit code.
func cliMain(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(stderr, "error:", exitErr.Message)
			}
			return exitErr.Code
		}
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trellisrun",
		Short:         "Run Trellis subprocess tools locally",
		Long:          "trellisrun invokes a tool from a manifest once, passing arguments through TRELLIS_ARGS or TRELLIS_ARG_<NAME> variables.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
	}
	root.SetVersionTemplate(version.String("trellisrun") + "\n")
	root.PersistentFlags().String("manifest", "tools.yaml", "Path to the tools manifest (.json, .yaml, .toml)")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging on stderr")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newEnvCmd())
	return root
}
