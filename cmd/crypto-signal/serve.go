// serve.go - Run the configured transport until the context is cancelled.
package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/crypto-signal/crypto-signal-mcp/internal/bridge"
	"github.com/crypto-signal/crypto-signal-mcp/internal/config"
	"github.com/crypto-signal/crypto-signal-mcp/internal/dispatch"
	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
	"github.com/crypto-signal/crypto-signal-mcp/internal/metrics"
	"github.com/crypto-signal/crypto-signal-mcp/internal/server"
	"github.com/crypto-signal/crypto-signal-mcp/internal/tools"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve tools over the configured transport (default command)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	ctx := logging.WithLogger(cmd.Context(), logger)

	clock := clockwork.NewRealClock()
	reg, err := tools.Registry(clock)
	if err != nil {
		return err
	}
	m := metrics.New()
	engine := dispatch.New(reg, serverInfo(),
		dispatch.WithObserver(m),
		dispatch.WithClock(clock),
	)

	logger.Info("starting crypto-signal",
		"version", version,
		"transport", cfg.Transport,
		"tools", reg.Len(),
	)

	switch cfg.Transport {
	case config.TransportHTTP:
		srv := server.New(engine, server.WithLogger(logger), server.WithMetrics(m))
		logger.Info("listening", "addr", cfg.Addr())
		err = srv.ListenAndServe(ctx, cfg.Addr(), cfg.ShutdownTimeout)
	default:
		stdio := bridge.NewStdioServer(engine, logger)
		err = stdio.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}
	logger.Info("crypto-signal stopped")
	return nil
}
