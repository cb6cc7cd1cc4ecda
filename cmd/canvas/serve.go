package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orchestra-mcp/canvas/config"
	"github.com/orchestra-mcp/canvas/providers"
	"github.com/orchestra-mcp/canvas/src/bridge"
	"github.com/orchestra-mcp/canvas/src/discovery"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	redis bool
	mdns  bool
	name  string
}

func serveCmd() *cobra.Command {
	var (
		port int
		opts serveOptions
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the canvas server",
		Long: `Start the canvas server.

Clients connect to /ws. /health, /ws/info and /metrics report on the
running server. The canvas lives in memory and is lost on restart.

Examples:
  canvas serve
  canvas serve --port=8080
  canvas serve --mdns --name=studio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.ConfigFromEnv()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			logger, err := newLogger(os.Stderr, logLevel, logPretty)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger, opts)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to listen on (default from PORT)")
	cmd.Flags().BoolVar(&opts.redis, "redis", true, "Publish broadcasts to Redis when reachable (REDIS_ADDR)")
	cmd.Flags().BoolVar(&opts.mdns, "mdns", false, "Advertise the server on the local network")
	cmd.Flags().StringVar(&opts.name, "name", "", "mDNS instance name (default hostname)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.ServerConfig, logger zerolog.Logger, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var popts []providers.ProviderOption
	if opts.redis {
		popts = append(popts, providers.WithRedis(bridge.RedisConfigFromEnv()))
	}
	p := providers.NewCanvasProvider(cfg, logger, popts...)

	actx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := p.Activate(actx)
	cancel()
	if err != nil {
		return err
	}

	if opts.mdns {
		adv, err := discovery.Advertise(opts.name, cfg.Port, "version="+providers.Version)
		if err != nil {
			logger.Warn().Err(err).Msg("mdns advertisement unavailable")
		} else {
			defer adv.Shutdown()
			logger.Info().Str("instance", adv.Instance()).Str("service", discovery.ServiceType).Msg("advertising on mdns")
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- p.ListenAndServe() }()
	logger.Info().Int("port", cfg.Port).Str("version", providers.Version).Msg("canvas server started")

	select {
	case err := <-errCh:
		_ = p.Deactivate()
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		return p.Shutdown()
	}
}
