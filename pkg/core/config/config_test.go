package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_dashboard/pkg/core/valuation"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "DGS10", cfg.RiskFreeSeries)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.BetaScrapeEnabled)
	assert.Equal(t, "https://fc.yahoo.com", cfg.MarketDataSeedURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("BETA_SCRAPE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppAddr)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.True(t, cfg.BetaScrapeEnabled)
	assert.True(t, cfg.CacheEnabled())
}

func TestLoadRejectsNonPositiveRateLimit(t *testing.T) {
	t.Setenv("MARKET_DATA_RATE_LIMIT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestParseAssumptionsOverlaysDefaults(t *testing.T) {
	a, err := ParseAssumptions([]byte(`
market_risk_premium: 0.06
target_debt_to_equity: 0.4
working_capital_window: 5
conventions:
  cost_of_capital_model: relevered
  nopat_basis: ebit
  capex_sign: magnitude
  invested_capital: derived
`))
	require.NoError(t, err)

	assert.Equal(t, 0.06, a.MarketRiskPremium)
	assert.Equal(t, 0.015, a.CreditSpread, "default kept")
	require.NotNil(t, a.TargetDebtToEquity)
	assert.Equal(t, 0.4, *a.TargetDebtToEquity)
	assert.Equal(t, 5, a.WorkingCapitalWindow)
	assert.Equal(t, valuation.ModelRelevered, a.Conventions.CostOfCapitalModel)
	assert.Equal(t, valuation.SourceDerived, a.Conventions.InvestedCapital)
	assert.Equal(t, 5, a.Forecast.Horizon)
}

func TestParseAssumptionsValidation(t *testing.T) {
	cases := map[string]string{
		"window":     "working_capital_window: 4",
		"convention": "conventions:\n  nopat_basis: net_income",
		"tax":        "fallback_tax_rate: 1.5",
		"beta":       "default_beta: 0",
		"fraction":   "forecast:\n  reinvestment_fraction: 2",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAssumptions([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadAssumptionsMissingFile(t *testing.T) {
	a, err := LoadAssumptions(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAssumptions(), a)
}

func TestLoadAssumptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assumptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("credit_spread: 0.02\n"), 0o644))

	a, err := LoadAssumptions(path)
	require.NoError(t, err)
	assert.Equal(t, 0.02, a.CreditSpread)
	assert.NoError(t, DefaultAssumptions().Validate())
}

func TestShippedAssumptionsMatchDefaults(t *testing.T) {
	a, err := LoadAssumptions(filepath.Join("..", "..", "..", "config", "assumptions.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAssumptions(), a)
}
