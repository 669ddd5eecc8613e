package main

import (
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "docverify",
		Short: "Check that documentation code blocks match and run",
		Long: `docverify extracts fenced code blocks from Markdown tutorials, compares
them with their checked-in reference sources and replays Go blocks in order.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newCheckCmd(g), newWatchCmd(g), newExtractCmd(g), newReplCmd(g))
	return cmd
}
