package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gitradar/pkg/mcp"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(global *GlobalFlags) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the gitradar engine as tools that AI agents can
discover and invoke:
  - gitradar_analyze: complexity, size, structure and duplication metrics for a code snippet
  - gitradar_suggest: naming and comment improvement suggestions`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(global, runtimeOptions{
				mode:    observability.ModeMCP,
				logOut:  cobraCmd.ErrOrStderr(),
				debug:   debug,
				logJSON: true,
			})
			if err != nil {
				return err
			}
			defer rt.close()

			srv, err := mcp.NewServer(mcp.ServerDeps{
				Engine:  rt.engine,
				Logger:  rt.logger(),
				Metrics: rt.red,
				Tracer:  rt.providers.Tracer,
			})
			if err != nil {
				return err
			}

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
