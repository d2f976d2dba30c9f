package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/application/agentloop"
	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/infrastructure/orchestrator"
)

var (
	agentNodeID        string
	agentConfigPath    string
	agentHeartbeat     int
	agentDriftInterval int
	agentNoAutoHeal    bool
	agentOrchestrator  string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the per-node agent: heartbeat, self drift-check, and optional auto-heal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID := agentNodeID
		if nodeID == "" {
			nodeID = cfg.Agent.NodeID
		}
		if nodeID == "" {
			exitCodeHolder.set(ExitInvalidArgs)
			return fmt.Errorf("agent: --node-id is required")
		}
		node, err := domain.ParseNode(nodeID)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		configPath, err := domain.NewConfigPath(agentConfigPath)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}

		heartbeat := cfg.Agent.HeartbeatSeconds
		if cmd.Flags().Changed("heartbeat") {
			heartbeat = agentHeartbeat
		}
		driftInterval := cfg.Agent.DriftIntervalSeconds
		if cmd.Flags().Changed("drift-interval") {
			driftInterval = agentDriftInterval
		}
		autoHeal := !cfg.Agent.NoAutoHeal
		if agentNoAutoHeal {
			autoHeal = false
		}
		endpoint := cfg.Agent.OrchestratorEndpoint
		if cmd.Flags().Changed("orchestrator") {
			endpoint = agentOrchestrator
		}

		client, err := orchestrator.Dial(endpoint)
		if err != nil {
			return err
		}
		defer client.Close()

		loop := agentloop.New(client, app.Build(), app.Executor(), app.Drift, nil, logger)

		logger.Info("agent starting", "node", node.ID(), "orchestrator", endpoint, "auto_heal", autoHeal)
		return loop.Run(cmd.Context(), agentloop.Config{
			Node:               node,
			ConfigPath:         configPath,
			HeartbeatInterval:  time.Duration(heartbeat) * time.Second,
			DriftCheckInterval: time.Duration(driftInterval) * time.Second,
			AutoHeal:           autoHeal,
		})
	},
}

func init() {
	agentCmd.Flags().StringVar(&agentNodeID, "node-id", "", "this node's user@host[:port] identity (default: config's agent.node_id)")
	agentCmd.Flags().StringVarP(&agentConfigPath, "config", "c", "", "declarative configuration path to self-check against")
	agentCmd.Flags().IntVar(&agentHeartbeat, "heartbeat", 0, "seconds between heartbeat reports (default: config's agent.heartbeat_seconds)")
	agentCmd.Flags().IntVar(&agentDriftInterval, "drift-interval", 0, "seconds between self drift-checks (default: config's agent.drift_interval_seconds)")
	agentCmd.Flags().BoolVar(&agentNoAutoHeal, "no-auto-heal", false, "report drift but never run a healing command locally")
	agentCmd.Flags().StringVar(&agentOrchestrator, "orchestrator", "", "grpc address of the fleet orchestrator (default: config's agent.orchestrator_endpoint)")
}
