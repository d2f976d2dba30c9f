// Package cli provides the command-line interface for Chimera.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/config"
	"github.com/chimera-systems/chimera/internal/container"
	"github.com/chimera-systems/chimera/internal/security"
)

// Exit codes per spec §6.2.
const (
	ExitSuccess       = 0
	ExitPartialFailure = 1
	ExitInvalidArgs   = 2
	ExitAuthDenied    = 3
)

var (
	cfgFile     string
	subjectID   string
	maskSecrets bool

	cfg    *config.Config
	app    *container.Container
	logger *log.Logger
)

// rootCmd is the base command when Chimera is invoked with no
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "chimera",
	Short: "Autonomous determinism for fleets of Nix-managed machines",
	Long: `Chimera builds declarative configurations, deploys them across a
fleet, detects drift from the deployed baseline, and heals it back to
the expected state without a human in the loop, subject to policy.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if maskSecrets {
			security.Enable()
		}
		return initApp()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	security.EnableInCI()
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	rootCmd.SetOut(security.NewMaskedWriter(os.Stdout))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "chimera-config", "", "chimera engine config file path (default: search ./chimera.json, /etc/chimera/chimera.json)")
	rootCmd.PersistentFlags().BoolVar(&maskSecrets, "mask-secrets", false, "redact credentials and tokens from command output")
	rootCmd.PersistentFlags().StringVar(&subjectID, "as", os.Getenv("USER"), "subject id to authorize actions against the policy engine")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(dashCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(agentCmd)
}

func initApp() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}

	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	if err := config.NewValidator().Validate(loaded); err != nil {
		return err
	}
	cfg = loaded

	logger.SetLevel(parseLogLevel(cfg.LogLevel))

	built, err := container.New(cfg, logger)
	if err != nil {
		return err
	}
	app = built
	return nil
}

func parseLogLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Shutdown flushes container state (the registry snapshot) and
// releases its resources. Safe to call even if a command never got far
// enough to build a container.
func Shutdown(ctx context.Context) error {
	if app == nil {
		return nil
	}
	if err := app.PersistRegistrySnapshot(ctx); err != nil {
		logger.Warn("registry snapshot failed", "err", err)
	}
	return app.Close()
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command under ctx, for graceful
// shutdown on SIGINT/SIGTERM.
func ExecuteContext(ctx context.Context) int {
	exitCodeHolder.set(ExitSuccess)
	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return exitCodeHolder.get()
}
