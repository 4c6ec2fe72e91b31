package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Chuabacca/Medley-AI/internal/cli"
	medleyhttp "github.com/Chuabacca/Medley-AI/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes consultations as a JSON API with server-sent events and websockets.
Prometheus metrics are served on /metrics unless http.metrics is false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Stop()
		cmd.SetContext(sc)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}

		app, cleanup, err := openApp(cmd, cfg, cli.LogServer, cli.WithMetrics(cfg.HTTP.Metrics))
		if err != nil {
			return err
		}
		defer cleanup()
		logger := app.Logger

		opts := []medleyhttp.Option{
			medleyhttp.WithSchema(app.Schema()),
			medleyhttp.WithVersion(version()),
			medleyhttp.WithLogger(logger),
		}
		if app.Metrics != nil {
			opts = append(opts, medleyhttp.WithMetrics(app.Metrics.Handler()))
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           medleyhttp.NewHandler(app.Manager, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go app.Engine.Prewarm(sc)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting Medley Server", "address", srv.Addr, "schema", cfg.Schema.Path, "version", version())
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-sc.Done():
			logger.Info("Start shutdown", "signal", fmt.Sprint(sc.Signal()))

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("Medley Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on, overrides http.addr")
}
