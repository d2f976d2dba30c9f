package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/domain"
)

var attachCmd = &cobra.Command{
	Use:   "attach SESSION_ID",
	Short: "Print the command to attach a terminal to a running session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := domain.NewSessionId(args[0])
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		attachCommand, err := app.Session().Attach(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), attachCommand)
		return nil
	},
}
