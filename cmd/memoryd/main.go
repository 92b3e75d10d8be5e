// Command memoryd is the agent-memory service's process entrypoint: it
// loads configuration, builds the dependency container, starts the
// coordinator/lock-service/worker-pool background loops, and exposes a
// minimal health/metrics endpoint. It does NOT expose the MCP tool surface
// itself — that dispatch layer is an external collaborator (spec section
// 1) that calls into this process's Go interfaces. Grounded on the
// teacher's cmd/api/main.go (config load -> DI container -> router ->
// graceful shutdown on SIGINT/SIGTERM), restructured around this module's
// background loops instead of an REST API surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/config"
	"github.com/agentmemory/memoryd/internal/di"
	"github.com/agentmemory/memoryd/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configDir = flag.String("config-dir", "config", "directory containing base.yaml / <environment>.yaml")
		env       = flag.String("env", "development", "deployment environment: development, staging, production")
	)
	flag.Parse()

	loader := config.NewLoader(*configDir, config.Environment(*env))
	cfg, err := loader.Load()
	if err != nil {
		log.Printf("memoryd: failed to load configuration: %v", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Printf("memoryd: failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	tracer, err := observability.NewTracerProvider(cfg.Tracing)
	if err != nil {
		logger.Error("failed to initialize tracing", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build dependency container", zap.Error(err))
		return 1
	}
	defer container.Close()

	watcher, err := config.NewWatcher(*configDir, cfg, logger)
	if err != nil {
		logger.Warn("config hot-reload disabled", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	handler := buildRouter(container, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("starting health/metrics listener", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		logger.Error("health/metrics listener failed", zap.Error(err))
		return 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("listener shutdown error", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", zap.Error(err))
	}

	logger.Info("memoryd stopped")
	return 0
}

func buildRouter(c *di.Container, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := c.DB.Conn().PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready")) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready")) //nolint:errcheck
	})
	if c.Config.Metrics.Enabled {
		r.Handle(c.Config.Metrics.Path, promhttp.HandlerFor(c.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// requestLogger logs each request's method, path, and request ID at debug
// level, mirroring the teacher's per-request logging middleware.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
			next.ServeHTTP(w, r)
		})
	}
}
