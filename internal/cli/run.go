package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/application/executelocal"
	"github.com/chimera-systems/chimera/internal/domain"
)

var (
	runPath    string
	runSession string
)

var runCmd = &cobra.Command{
	Use:   "run CMD",
	Short: "Build a configuration and run a command inside a local session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := domain.NewConfigPath(runPath)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		sessionID, err := domain.NewSessionId(runSession)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}

		out, err := app.ExecuteLocal.Execute(cmd.Context(), executelocal.Input{
			ConfigPath:  configPath,
			SessionName: sessionID,
			Command:     args[0],
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fingerprint: %s\nsession: %s\nsucceeded: %v\n", out.Fingerprint, out.SessionUsed, out.Succeeded)
		if !out.Succeeded {
			exitCodeHolder.set(ExitPartialFailure)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&runPath, "config", "c", "", "declarative configuration path")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "local", "session name to run the command in")
}
