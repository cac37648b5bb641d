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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/soonest-slot/internal/api/router"
	"github.com/wolfman30/soonest-slot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/soonest-slot/internal/config"
	"github.com/wolfman30/soonest-slot/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/soonest-slot/internal/http/middleware"
	"github.com/wolfman30/soonest-slot/internal/observability/metrics"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "soonest-slot",
	})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting soonest-slot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"location", cfg.LocationName,
	)

	handler, limiter, err := buildHandler(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go limiter.Run(done)

	// A full sweep can take several scan timeouts end to end.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(done)

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildHandler wires the availability stack behind the router. Metrics are
// registered on reg, which also backs /metrics and /stats.
func buildHandler(cfg *appconfig.Config, logger *logging.Logger, reg *prometheus.Registry) (http.Handler, *httpmiddleware.RateLimiter, error) {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewAvailabilityMetrics(reg)

	built, err := bootstrap.BuildAvailability(cfg, m, logger)
	if err != nil {
		return nil, nil, err
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := router.New(&router.Config{
		Logger:      logger,
		FindSoonest: handlers.NewFindSoonestHandler(built.Finder, logger),
		Health: handlers.HealthHandler(handlers.HealthInfo{
			Environment:   cfg.Env,
			Location:      cfg.LocationName,
			LookaheadDays: cfg.ScanLookaheadDays,
			Windows:       len(built.Windows),
			RosterTTL:     cfg.RosterTTL,
		}),
		Stats:              handlers.StatsHandler(reg),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})
	return handler, limiter, nil
}
