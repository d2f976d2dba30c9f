package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/application/rollback"
	"github.com/chimera-systems/chimera/internal/domain"
)

var (
	rollbackTargets    string
	rollbackGeneration int
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll targets back to a prior generation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := domain.ParseNodes(rollbackTargets)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}

		var generation *int
		if cmd.Flags().Changed("generation") {
			generation = &rollbackGeneration
		}

		results, err := app.Rollback.Execute(cmd.Context(), rollback.Input{
			AggregateID: uuid.NewString(),
			Targets:     targets,
			Generation:  generation,
		})
		if err != nil {
			return err
		}

		anyFail := false
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s\n", r.Node.ID(), r.Status, r.Reason)
			if r.Status == rollback.StatusFail {
				anyFail = true
			}
		}
		if anyFail {
			exitCodeHolder.set(ExitPartialFailure)
		}
		return nil
	},
}

func init() {
	rollbackCmd.Flags().StringVarP(&rollbackTargets, "targets", "t", "", "comma-separated user@host[:port] targets (required)")
	rollbackCmd.Flags().IntVarP(&rollbackGeneration, "generation", "g", 0, "generation to roll back to (default: previous generation)")
	rollbackCmd.MarkFlagRequired("targets")
}
