package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/trellistools/internal/tools"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tools in the manifest",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	_, ordered, err := tools.LoadManifest(manifestPath)
	if err != nil {
		return exitError(exitUsage, "%s", err)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCONVENTION\tTIMEOUT\tCOMMAND\tDESCRIPTION")
	for _, t := range ordered {
		timeout := "default"
		if t.TimeoutSec > 0 {
			timeout = fmt.Sprintf("%ds", t.TimeoutSec)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.Convention, timeout, strings.Join(t.Command, " "), t.Description)
	}
	return tw.Flush()
}
