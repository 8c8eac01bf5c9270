// Package app wires configuration, caches and collaborator clients into the
// valuation service and builds the HTTP router.
package app

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"valuation_dashboard/pkg/core/config"
	"valuation_dashboard/pkg/core/ingest"
	"valuation_dashboard/pkg/core/logging"
	"valuation_dashboard/pkg/core/pipeline"
	"valuation_dashboard/pkg/core/store"
)

// App holds the constructed service and the resources that need closing.
type App struct {
	Service *pipeline.Service
	Cache   *store.ResponseCache
	redis   *redis.Client
}

// Build constructs the service from configuration. A Redis that cannot be
// reached is logged and skipped; the file cache still applies.
func Build(ctx context.Context, cfg *config.Config, a config.Assumptions, log zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	app := &App{}

	// 1. Response cache
	if cfg.CacheEnabled() {
		if cfg.RedisAddr != "" {
			client, err := store.NewRedis(ctx, cfg.RedisAddr)
			if err != nil {
				log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using file cache only")
			} else {
				app.redis = client
			}
		}
		app.Cache = store.NewResponseCache(app.redis, cfg.CacheDir, cfg.CacheTTL, logging.Component(log, "cache"))
	}
	var cache ingest.Cache
	if app.Cache != nil {
		cache = app.Cache
	}

	// 2. Collaborator clients
	ingestLog := logging.Component(log, "ingest")
	marketOpts := []ingest.MarketOption{
		ingest.WithMarketRateLimit(cfg.MarketDataRateLimit, cfg.MarketDataBurst),
		ingest.WithMarketCache(cache),
		ingest.WithMarketLogger(ingestLog),
	}
	if cfg.MarketDataSeedURL != "" {
		marketOpts = append(marketOpts, ingest.WithCrumbSeed(cfg.MarketDataSeedURL))
	}
	market := ingest.NewMarketClient(cfg.MarketDataURL, cfg.HTTPTimeout, cfg.UserAgent, marketOpts...)
	treasury := ingest.NewTreasuryClient(cfg.TreasuryURL, cfg.HTTPTimeout, cfg.UserAgent, cache, ingestLog)

	// 3. Risk-free chain: macro series (needs a key) then Treasury
	var rates []pipeline.RateSource
	opts := []pipeline.Option{pipeline.WithLogger(logging.Component(log, "pipeline"))}
	if cfg.MacroAPIKey != "" {
		macro := ingest.NewMacroClient(cfg.MacroURL, cfg.MacroAPIKey, cfg.RiskFreeSeries, cfg.HTTPTimeout, cfg.UserAgent, cache, ingestLog)
		rates = append(rates, macro)
		if cfg.OverlaySeries != "" {
			opts = append(opts, pipeline.WithOverlaySeries(macro, cfg.OverlaySeries))
		}
	} else {
		log.Info().Msg("FRED_API_KEY not set, macro series disabled")
	}
	rates = append(rates, treasury)
	opts = append(opts, pipeline.WithRateSources(rates...))

	if cfg.BetaScrapeEnabled {
		opts = append(opts, pipeline.WithBetaSource(
			ingest.NewBetaScraper(cfg.BetaScrapeURL, cfg.HTTPTimeout, cfg.UserAgent, cache, ingestLog)))
	}

	app.Service = pipeline.NewService(market, a, opts...)
	return app, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a == nil || a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
