package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/application/deployfleet"
	"github.com/chimera-systems/chimera/internal/domain"
)

var (
	deployTargets string
	deployPath    string
	deploySession string
)

var deployCmd = &cobra.Command{
	Use:   "deploy CMD",
	Short: "Build a configuration and deploy it across a fleet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := domain.ParseNodes(deployTargets)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		configPath, err := domain.NewConfigPath(deployPath)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		sessionID, err := domain.NewSessionId(deploySession)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}

		out, err := app.DeployFleet.Execute(cmd.Context(), deployfleet.Input{
			ConfigPath:  configPath,
			Command:     args[0],
			SessionName: sessionID,
			Targets:     targets,
		})
		if err != nil {
			return err
		}

		anyFail := false
		for _, outcome := range out.Outcomes {
			status := "OK"
			if !outcome.SyncOK || !outcome.ExecOK {
				status = "FAIL"
				anyFail = true
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", outcome.Node.ID(), status)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deployment %s: %s\n", out.Deployment.ID, out.Deployment.Status)

		if out.Deployment.Status == domain.StatusFailed {
			exitCodeHolder.set(ExitPartialFailure)
		} else if anyFail {
			exitCodeHolder.set(ExitPartialFailure)
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVarP(&deployTargets, "targets", "t", "", "comma-separated user@host[:port] targets (required)")
	deployCmd.Flags().StringVarP(&deployPath, "config", "c", "", "declarative configuration path")
	deployCmd.Flags().StringVarP(&deploySession, "session", "s", "deploy", "session name to run the command in")
	deployCmd.MarkFlagRequired("targets")
}
