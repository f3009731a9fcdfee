package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planfact/internal/config"
	"planfact/internal/core"
	"planfact/internal/fetch"
	apphttp "planfact/internal/http"
	applog "planfact/internal/log"
	"planfact/internal/source"
	"planfact/internal/source/api"
	"planfact/internal/source/memory"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var src source.ReportSource
	switch cfg.DataBackend {
	case "api":
		fetcher := fetch.New(
			&http.Client{Timeout: cfg.HTTPTimeout},
			fetch.Options{Retries: cfg.FetchRetries, Delay: cfg.FetchDelay, Backoff: cfg.FetchBackoff},
		)
		cli, err := api.New(cfg.APIBaseURL, fetcher)
		if err != nil {
			logger.Error("Failed to initialize API source", "error", err, "backend", cfg.DataBackend)
			os.Exit(1)
		}
		src = cli
		logger.Info("Initialized API backend", "backend", cfg.DataBackend, "base_url", cfg.APIBaseURL)
	default:
		src = memory.NewSeeded()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	srv := apphttp.NewServer(":"+cfg.Port, src, core.NewCollator(cfg.Locale), logger)

	// Server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown, "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting planfact server", applog.FieldOperation, applog.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
