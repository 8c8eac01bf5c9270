package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the processes.
type Config struct {
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"60"` // requests per minute per IP

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Market-data provider (fundamentals time series + quote summary)
	MarketDataURL       string  `envconfig:"MARKET_DATA_URL" default:"https://query2.finance.yahoo.com"`
	MarketDataRateLimit float64 `envconfig:"MARKET_DATA_RATE_LIMIT" default:"2"` // requests per second
	MarketDataBurst     int     `envconfig:"MARKET_DATA_BURST" default:"4"`
	// Cookie source for the quote-summary crumb handshake; empty skips it.
	MarketDataSeedURL string `envconfig:"MARKET_DATA_SEED_URL" default:"https://fc.yahoo.com"`

	// Macroeconomic series provider
	MacroURL       string `envconfig:"MACRO_URL" default:"https://api.stlouisfed.org/fred"`
	MacroAPIKey    string `envconfig:"FRED_API_KEY"`
	RiskFreeSeries string `envconfig:"RISK_FREE_SERIES" default:"DGS10"`
	OverlaySeries  string `envconfig:"OVERLAY_SERIES" default:"PPIACO"`

	TreasuryURL string `envconfig:"TREASURY_URL" default:"https://home.treasury.gov/resource-center/data-chart-center/interest-rates/pages/xml"`

	BetaScrapeURL     string `envconfig:"BETA_SCRAPE_URL" default:"https://finviz.com/quote.ashx"`
	BetaScrapeEnabled bool   `envconfig:"BETA_SCRAPE_ENABLED" default:"false"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	UserAgent   string        `envconfig:"USER_AGENT" default:"valuation-dashboard/1.0"`

	// Response cache. An empty RedisAddr leaves only the file cache.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheDir  string        `envconfig:"CACHE_DIR" default:"data/cache"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"12h"`

	AssumptionsFile string `envconfig:"ASSUMPTIONS_FILE" default:"config/assumptions.yaml"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if cfg.MarketDataRateLimit <= 0 {
		return nil, fmt.Errorf("MARKET_DATA_RATE_LIMIT must be positive, got %g", cfg.MarketDataRateLimit)
	}
	if cfg.MarketDataBurst < 1 {
		cfg.MarketDataBurst = 1
	}
	return &cfg, nil
}

// CacheEnabled reports whether any response cache is configured.
func (c *Config) CacheEnabled() bool {
	return c != nil && c.CacheTTL > 0 && (c.RedisAddr != "" || c.CacheDir != "")
}
