package cmd

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conclave-ai/conclave/internal/adapters/analyzer"
	"github.com/conclave-ai/conclave/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The server accepts request submissions, exposes the panel and outcome
history, and streams pipeline events to SSE clients.

Examples:
  # Start with configured defaults (127.0.0.1:8600)
  conclave serve

  # Bind elsewhere
  conclave serve --host 0.0.0.0 --port 9000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"host address to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"port to listen on (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := initApp(appOptions{withBus: true})
	if err != nil {
		return err
	}
	defer a.Close()

	host := a.cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := a.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	server := web.NewServer(a.engine, a.registry,
		web.WithHistory(a.store),
		web.WithAnalyzer(analyzer.New()),
		web.WithBus(a.bus),
		web.WithHeartbeat(a.cfg.Server.SSEHeartbeatDuration()),
		web.WithCORSOrigins(a.cfg.Server.CORSOrigins),
		web.WithLogger(a.logger),
	)

	ctx, cancel := signalContext()
	defer cancel()

	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
