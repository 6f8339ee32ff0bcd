package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/metrics"
	"github.com/aretw0/reticula/internal/presentation/tui"
	httpAdapter "github.com/aretw0/reticula/pkg/adapters/http"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Serves POST /infer (Newick in, extended Newick out), GET /healthz and
Prometheus metrics on GET /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
			}

			logger := newLogger(cfg)
			recorder := metrics.New()
			hooks := recorder.Hooks()
			opts, closeCache, err := engineOptions(cfg, logger, &hooks)
			if err != nil {
				return err
			}
			defer closeCache()

			handler := httpAdapter.NewHandler(&httpAdapter.Server{
				Engine:  reticula.New(opts...),
				Cache:   recorder,
				Metrics: recorder.Handler(),
				Logger:  logger,
			})
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			tui.PrintBanner(cmd.ErrOrStderr())

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("starting reticula server", "addr", srv.Addr, "cache", cfg.Cache.Backend)
				serverErrors <- srv.ListenAndServe()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				logger.Info("shutdown started")

				// Give outstanding requests a deadline for completion.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("graceful shutdown did not complete", "error", err)
					if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				logger.Info("reticula server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
	return cmd
}
