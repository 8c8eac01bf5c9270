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

	valuationapi "valuation_dashboard/pkg/api/valuation"
	"valuation_dashboard/pkg/app"
	"valuation_dashboard/pkg/core/config"
	"valuation_dashboard/pkg/core/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] config: %v\n", err)
		return 1
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	assumptions, err := config.LoadAssumptions(cfg.AssumptionsFile)
	if err != nil {
		log.Error().Err(err).Str("file", cfg.AssumptionsFile).Msg("load assumptions")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, assumptions, log)
	if err != nil {
		log.Error().Err(err).Msg("build service")
		return 1
	}
	defer a.Close()

	var cache valuationapi.CacheBuster
	if a.Cache != nil {
		cache = a.Cache
	}
	handler := valuationapi.NewHandler(a.Service, cache, cfg.AppRequestTimeout, logging.Component(log, "api"))

	srv := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           app.NewRouter(cfg, handler, logging.Component(log, "http")),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.AppRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.AppAddr).
		Bool("cache", a.Cache != nil).
		Str("conventions", fmt.Sprintf("%+v", assumptions.Conventions)).
		Msg("API server starting")
	log.Info().Msg("  - POST /api/valuation/report")
	log.Info().Msg("  - GET  /api/valuation/{ticker}/forecast")
	log.Info().Msg("  - GET  /api/valuation/{ticker}/working-capital")
	log.Info().Msg("  - GET  /api/valuation/{ticker}/summary")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server failed")
		return 1
	}
	return 0
}
