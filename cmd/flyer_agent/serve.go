package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/flyer-scout/internal/server"
	"github.com/jonathan/flyer-scout/internal/server/ratelimit"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  "Start an HTTP server that exposes the store, discovery, resolve and extraction endpoints.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				opts.cfg.ListenAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg, opts.logger, wireOptions{vision: true, record: true})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := server.Config{
				Addr:      opts.cfg.ListenAddr,
				Service:   a.pipeline,
				RateLimit: ratelimit.LoadConfig(),
				Logger:    opts.logger,
			}
			if a.database != nil {
				cfg.Runs = a.database
			} else {
				opts.logger.Warn().Msg("DATABASE_URL not set; run history is disabled")
			}

			return server.New(cfg).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
