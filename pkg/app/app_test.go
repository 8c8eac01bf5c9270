package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	valuationapi "valuation_dashboard/pkg/api/valuation"
	"valuation_dashboard/pkg/core/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppRequestTimeout:   time.Second,
		AppRateLimit:        2,
		MarketDataURL:       "http://127.0.0.1:0",
		MarketDataRateLimit: 5,
		MarketDataBurst:     1,
		TreasuryURL:         "http://127.0.0.1:0",
		HTTPTimeout:         time.Second,
		UserAgent:           "test",
		CacheDir:            t.TempDir(),
		CacheTTL:            time.Hour,
	}
}

func TestBuildWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()
	cfg.MacroAPIKey = "key"
	cfg.OverlaySeries = "PPIACO"

	a, err := Build(context.Background(), cfg, config.DefaultAssumptions(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Service)
	require.NotNil(t, a.Cache)
	assert.NotNil(t, a.redis)
	assert.Equal(t, config.DefaultAssumptions(), a.Service.Assumptions())
	require.NoError(t, a.Cache.Bump(context.Background()))
	assert.True(t, mr.Exists("valuation:cache:version"))
}

func TestBuildWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.RedisAddr = addr
	a, err := Build(context.Background(), cfg, config.DefaultAssumptions(), zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a.redis)
	assert.NotNil(t, a.Cache, "file tier still applies")
	assert.NoError(t, a.Close())

	cfg.CacheTTL = 0
	a, err = Build(context.Background(), cfg, config.DefaultAssumptions(), zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a.Cache)

	_, err = Build(context.Background(), nil, config.DefaultAssumptions(), zerolog.Nop())
	assert.Error(t, err)
}

func TestRouterHealthAndRateLimit(t *testing.T) {
	cfg := testConfig(t)
	a, err := Build(context.Background(), cfg, config.DefaultAssumptions(), zerolog.Nop())
	require.NoError(t, err)

	h := valuationapi.NewHandler(a.Service, a.Cache, time.Second, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(cfg, h, zerolog.Nop()))
	defer srv.Close()

	for i := 0; i < cfg.AppRateLimit; i++ {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRouterMountsValuationRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppRateLimit = 100
	a, err := Build(context.Background(), cfg, config.DefaultAssumptions(), zerolog.Nop())
	require.NoError(t, err)

	h := valuationapi.NewHandler(a.Service, a.Cache, time.Second, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(cfg, h, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/valuation/AA%20PL/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/valuation/cache/clear", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
