package cli

import (
	"github.com/spf13/cobra"

	"github.com/chimera-systems/chimera/internal/httpserver"
)

var (
	webHost string
	webPort int
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the fleet dashboard's HTTP and WebSocket API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		webCfg := cfg.Web
		if cmd.Flags().Changed("host") {
			webCfg.Host = webHost
		}
		if cmd.Flags().Changed("port") {
			webCfg.Port = webPort
		}

		server := httpserver.NewServer(httpserver.ServerDeps{
			Config:    webCfg,
			Registry:  app.Registry(),
			History:   app.History(),
			Analytics: app.Analytics,
			RootCause: app.RootCause,
			SLOs:      app.SLOs,
			Policy:    app.Policy(),
			Metrics:   app.Metrics.Handler(),
		})
		server.EventBroadcaster().Wire(app.EventBus())

		logger.Info("web dashboard listening", "address", server.Address())
		return server.Start(cmd.Context())
	},
}

func init() {
	webCmd.Flags().StringVar(&webHost, "host", "", "bind host (default: config's web.host)")
	webCmd.Flags().IntVar(&webPort, "port", 0, "bind port (default: config's web.port)")
}
