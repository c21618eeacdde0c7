package main

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/trellistools/internal/tools"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <tool>",
		Short: "Run one tool from the manifest",
		Args:  cobra.ExactArgs(1),
		RunE:  runTool,
	}
	addArgFlags(cmd)
	cmd.Flags().String("env-file", "", "Dotenv file whose variables are added to the tool environment")
	cmd.Flags().Duration("timeout", 10*time.Second, "Timeout when the manifest sets none")
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	return cmd
}

func runTool(cmd *cobra.Command, argv []string) error {
	logger := newLogger(cmd)
	manifestPath, _ := cmd.Flags().GetString("manifest")
	registry, _, err := tools.LoadManifest(manifestPath)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	spec, ok := registry[argv[0]]
	if !ok {
		return exitError(exitUsage, "unknown tool %q in %s", argv[0], manifestPath)
	}
	args, err := collectArgs(cmd)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	conv, err := conventionFlag(cmd)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	inv := tools.Invocation{Args: args, Convention: conv}
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		extra, err := godotenv.Read(envFile)
		if err != nil {
			return exitError(exitUsage, "read env file: %s", err)
		}
		inv.ExtraEnv = extra
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	logger.Debug("running tool", "tool", spec.Name, "command", spec.Command, "args", len(args))
	res, runErr := tools.Run(cmd.Context(), spec, inv, timeout)
	logger.Debug("tool finished", "tool", spec.Name, "callId", res.CallID, "exit", res.ExitCode)

	asJSON, _ := cmd.Flags().GetBool("json")
	if err := printResult(cmd.OutOrStdout(), res, runErr, asJSON, noColor(cmd)); err != nil {
		return exitError(exitFailure, "print result: %s", err)
	}
	if runErr != nil {
		return exitError(exitFailure, "tool %s failed: %s", spec.Name, runErr)
	}
	return nil
}
