package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fervo-ui/fervo/examples"
	"github.com/fervo-ui/fervo/internal/config"
	"github.com/fervo-ui/fervo/pkg/backend/live"
	"github.com/fervo-ui/fervo/pkg/runtime"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the example gallery over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr()
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			serverCfg := live.ServerConfig{
				Title:  cfg.Name,
				Logger: logger,
				Session: live.SessionConfig{
					ReadTimeout:       60 * time.Second,
					WriteTimeout:      10 * time.Second,
					HeartbeatInterval: cfg.Heartbeat(),
				},
			}
			if cfg.Serve.Metrics {
				serverCfg.Metrics = runtime.NewMetrics()
			}

			server := live.NewServer(examples.Gallery, serverCfg)
			return server.ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides fervo.json)")
	return cmd
}
