// Package main provides the entry point for the gitradar CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitradar/cmd/gitradar/commands"
	"github.com/Sumatoshi-tech/gitradar/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	global := &commands.GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "gitradar",
		Short: "gitradar - static code metrics, duplication and suggestions",
		Long: `gitradar computes per-unit code metrics: cyclomatic complexity with A-F
ranks, raw line counts, structural counts and duplicate blocks across units,
and suggests naming and comment improvements.

Commands:
  analyze   Analyze files, directories or blob store prefixes
  suggest   Suggest improvements for a piece of code
  validate  Validate a JSON report against the report schema
  mcp       Serve the engine as MCP tools on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&global.ConfigPath, "config", "c", "", "config file (default: .gitradar.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&global.Quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewAnalyzeCommand(global))
	rootCmd.AddCommand(commands.NewSuggestCommand(global))
	rootCmd.AddCommand(commands.NewValidateCommand(global))
	rootCmd.AddCommand(commands.NewMCPCommand(global))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
