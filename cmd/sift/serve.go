package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sift/sift/internal/config"
	"github.com/sift/sift/internal/observability"
	"github.com/sift/sift/internal/ratelimit"
	"github.com/sift/sift/internal/rules"
	"github.com/sift/sift/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	var listen string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if cfg.Server.Listen == "" {
				return errors.New("server.listen is required")
			}
			return runServe(cmd.Context(), configPath, cfg, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&listen, "listen", "", "Override server listen address")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload rules when the config or pattern files change")

	return cmd
}

func runServe(ctx context.Context, configPath string, cfg *config.Config, watch bool) error {
	engine, err := rules.BuildEngine(cfg)
	if err != nil {
		return err
	}
	holder := rules.NewHolder(engine)

	findings, closeFindings, err := openFindings(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFindings() }()

	var (
		reg     *prometheus.Registry
		metrics *observability.Metrics
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
		metrics.SetEngine(engine)
	}

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	}

	opts := server.Options{
		Holder:       holder,
		Policy:       cfg.Policy,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Limiter:      limiter,
		Findings:     findings,
		Metrics:      metrics,
		Registry:     reg,
	}
	handler := server.New(opts)

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go handler.SweepLimiter(signalCtx)

	if watch {
		build := func() (*rules.Engine, []string, error) {
			next, err := config.Load(configPath)
			if err != nil {
				return nil, nil, err
			}
			if err := next.Validate(); err != nil {
				return nil, nil, err
			}
			e, err := rules.BuildEngine(next)
			if err != nil {
				return nil, nil, err
			}
			return e, next.WatchPaths(), nil
		}
		hook := func(err error) {
			metrics.ObserveReload(err)
			if err == nil {
				metrics.SetEngine(holder.Load())
			}
		}
		go func() {
			if err := holder.Watch(signalCtx, cfg.WatchPaths(), build, hook); err != nil {
				slog.Error("rule watcher stopped", "err", err)
			}
		}()
	}

	var metricsSrv *http.Server
	if reg != nil && cfg.Metrics.Listen != cfg.Server.Listen {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()
	slog.Info("serving", "listen", cfg.Server.Listen, "rules", len(engine.Rules), "watch", watch)

	select {
	case <-signalCtx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}
