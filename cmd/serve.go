package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/api"
	"github.com/JakeFAU/jersey-gallery/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the jersey dataset to the gallery front end",
		Example: `  # Serve on the configured port (server.port, default 8080)
  jerseys serve

  # Serve on a custom port
  jerseys serve --port 5000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServer(cmd.Context(), cfg, appInstance.Logger.Named("api"))
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	server := api.NewServer(apiOptions(cfg), logger)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("dataset", cfg.Store.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
			return err
		}
		logger.Info("shutdown complete")
		return nil
	case err := <-serverErr:
		logger.Error("http server error", zap.Error(err))
		return err
	}
}

func apiOptions(cfg config.Config) api.Options {
	return api.Options{
		DatasetPath:        cfg.Store.Path,
		ProxyImages:        cfg.Server.ProxyImages,
		DebugErrors:        cfg.Server.DebugErrors,
		Referer:            cfg.Server.Referer,
		UserAgent:          cfg.HTTP.UserAgent,
		UpstreamTimeout:    cfg.Server.UpstreamTimeout,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		PhotoHost:          cfg.Crawler.PhotoHost,
		UpstreamRPS:        cfg.Server.UpstreamRPS,
		UpstreamBurst:      cfg.Server.UpstreamBurst,
	}
}
