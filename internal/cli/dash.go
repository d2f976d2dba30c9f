package cli

import (
	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/ui/dashboard"
)

var dashTargets string

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Open a terminal dashboard showing fleet health and recent activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := domain.ParseNodes(dashTargets)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		return dashboard.Run(cmd.Context(), app.Registry(), app.EventBus(), targets)
	},
}

func init() {
	dashCmd.Flags().StringVarP(&dashTargets, "targets", "t", "", "comma-separated user@host[:port] targets (required)")
	dashCmd.MarkFlagRequired("targets")
}
