package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/trellistools/internal/toolargs"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment entries a tool would receive",
		Args:  cobra.NoArgs,
		RunE:  runEnv,
	}
	addArgFlags(cmd)
	return cmd
}

func runEnv(cmd *cobra.Command, _ []string) error {
	args, err := collectArgs(cmd)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	conv, err := conventionFlag(cmd)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	if conv == 0 {
		conv = toolargs.Bundled
	}
	entries, err := toolargs.Encode(args, conv)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), e); err != nil {
			return err
		}
	}
	return nil
}
