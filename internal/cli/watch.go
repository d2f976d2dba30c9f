package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/application/autonomousloop"
	"github.com/chimera-systems/chimera/internal/domain"
)

var (
	watchTargets string
	watchPath    string
	watchSession string
	watchOnce    bool
	watchInterval int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously check targets for drift and heal it, subject to policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := domain.ParseNodes(watchTargets)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		configPath, err := domain.NewConfigPath(watchPath)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}
		sessionID, err := domain.NewSessionId(watchSession)
		if err != nil {
			exitCodeHolder.set(ExitInvalidArgs)
			return err
		}

		interval := cfg.Watch.IntervalSeconds
		if watchInterval > 0 {
			interval = watchInterval
		}

		return app.AutonomousLoop.Run(cmd.Context(), autonomousloop.Config{
			ConfigPath:     configPath,
			Targets:        targets,
			Interval:       time.Duration(interval) * time.Second,
			SessionName:    sessionID,
			RebuildCommand: cfg.Watch.RebuildCommand,
			RestartCommand: cfg.Watch.RestartCommand,
			Once:           watchOnce || cfg.Watch.Once,
			SubjectID:      subjectID,
		})
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchTargets, "targets", "t", "", "comma-separated user@host[:port] targets (required)")
	watchCmd.Flags().StringVarP(&watchPath, "config", "c", "", "declarative configuration path")
	watchCmd.Flags().IntVarP(&watchInterval, "interval", "i", 0, "seconds between drift checks (default: config's watch.interval_seconds)")
	watchCmd.Flags().StringVarP(&watchSession, "session", "s", "watch", "session name used for healing commands")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run a single drift-check cycle and exit")
	watchCmd.MarkFlagRequired("targets")
}
