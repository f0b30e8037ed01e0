package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wboard/connector/api"
	"github.com/wboard/connector/internal"
	"github.com/wboard/connector/metrics/export/prometheus"
	"github.com/wboard/connector/session"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		listen        string
		embeddedRedis bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the connector API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if embeddedRedis {
				cfg.Redis.Embedded = true
			}

			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "Address to listen on")
	cmd.Flags().BoolVar(&embeddedRedis, "embedded-redis", false, "Run an in-process redis (development only)")
	return cmd
}

func runServe(ctx context.Context, cfg fileConfig, logger *logrus.Logger) error {
	b, err := openBackend(cfg, logger, false)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.Metrics.OTel.Enabled {
		shutdownOTel, err := startOTelMetrics(ctx, cfg.Metrics.OTel, b.engine)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownOTel(flushCtx); err != nil {
				logger.WithError(err).Warn("flush otel metrics")
			}
		}()
		logger.WithField("endpoint", cfg.Metrics.OTel.Endpoint).Info("exporting metrics over OTLP")
	}

	engineCfg := b.engine.Config()
	for _, w := range engineCfg.Lint() {
		logger.WithFields(logrus.Fields{"code": w.Code, "severity": w.Severity.String()}).Warn(w.Message)
	}

	if _, err := b.engine.EnsureSecret(ctx); err != nil {
		return fmt.Errorf("ensure secret: %w", err)
	}

	sessions, err := newSessionManager(cfg, b, logger)
	if err != nil {
		return err
	}

	opts := api.Options{
		Engine:   b.engine,
		Sessions: sessions,
		Logger:   logger,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.NewCollector(b.engine).Handler()
	}
	server, err := api.NewServer(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ErrorLog:          newStdErrorLog(logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Listen).Info("serving connector API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSessionManager(cfg fileConfig, b *backend, logger logrus.FieldLogger) (*session.Manager, error) {
	key := cfg.Session.Key
	if key == "" {
		generated, err := internal.NewSecret(64)
		if err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		key = generated
		logger.Warn("session.key not set; browser sessions end when the process restarts")
	}

	return session.NewManager(session.Config{
		TTL:       cfg.Session.TTL,
		Key:       []byte(key),
		Secure:    cfg.Session.Secure,
		KeyPrefix: cfg.engineConfig().Store.KeyPrefix,
	}, session.WithStore(b.store))
}
