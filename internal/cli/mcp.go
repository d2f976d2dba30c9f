package cli

import (
	"github.com/spf13/cobra"

	chimeramcp "github.com/chimera-systems/chimera/internal/mcp"
)

var (
	mcpHost string
	mcpPort int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tool/resource surface for AI agent integration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpCfg := cfg.MCP
		if cmd.Flags().Changed("host") {
			mcpCfg.Host = mcpHost
		}
		if cmd.Flags().Changed("port") {
			mcpCfg.Port = mcpPort
		}

		server := chimeramcp.NewServer(app.DeployFleet, app.Rollback, app.Drift, app.Registry(), nil, logger)
		logger.Info("mcp server listening", "host", mcpCfg.Host, "port", mcpCfg.Port)
		return chimeramcp.Serve(cmd.Context(), mcpCfg.Host, mcpCfg.Port, server, logger)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHost, "host", "", "bind host (default: config's mcp.host)")
	mcpCmd.Flags().IntVar(&mcpPort, "port", 0, "bind port (default: config's mcp.port)")
}
