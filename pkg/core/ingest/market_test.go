package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation_dashboard/pkg/core/statement"
)

const timeseriesBody = `{
  "timeseries": {
    "result": [
      {
        "meta": {"symbol": ["AAPL"], "type": ["annualTotalRevenue"]},
        "timestamp": [1664496000, 1696032000],
        "annualTotalRevenue": [
          {"asOfDate": "2023-09-30", "periodType": "12M", "reportedValue": {"raw": 383285000000, "fmt": "383.29B"}},
          null,
          {"asOfDate": "2024-09-30", "periodType": "12M", "reportedValue": {"raw": 391035000000, "fmt": "391.04B"}}
        ]
      },
      {
        "meta": {"symbol": ["AAPL"], "type": ["annualLongTermDebt"]},
        "annualLongTermDebt": [
          {"asOfDate": "2024-09-30", "reportedValue": {"raw": 85750000000}}
        ]
      },
      {
        "meta": {"symbol": ["AAPL"], "type": ["annualCapitalExpenditure"]},
        "annualCapitalExpenditure": [
          {"asOfDate": "2024-09-30", "reportedValue": {"raw": -9447000000}}
        ]
      },
      {
        "meta": {"symbol": ["AAPL"], "type": ["annualGoodwill"]},
        "annualGoodwill": [{"asOfDate": "2024-09-30", "reportedValue": {"raw": 1}}]
      },
      {
        "meta": {"symbol": ["AAPL"], "type": ["annualInventory"]}
      }
    ],
    "error": null
  }
}`

const summaryBody = `{
  "quoteSummary": {
    "result": [{
      "price": {"longName": "Apple Inc.", "currency": "USD", "marketCap": {"raw": 3400000000000, "fmt": "3.4T"}, "regularMarketPrice": {"raw": 226.5}},
      "summaryDetail": {"beta": {"raw": 1.24, "fmt": "1.24"}},
      "defaultKeyStatistics": {"sharesOutstanding": {"raw": 15115800000}}
    }],
    "error": null
  }
}`

func TestParseTimeseries(t *testing.T) {
	s, dropped, err := ParseTimeseries("AAPL", []byte(timeseriesBody))
	require.NoError(t, err)

	assert.Equal(t, 1, dropped, "annualGoodwill is not a recognised line item")
	assert.Equal(t, []statement.Period{"2024-09-30", "2023-09-30"}, s.Income.Periods())
	assert.Equal(t, 391035000000.0, s.Income.GetLatest(statement.TotalRevenue))
	assert.Equal(t, 85750000000.0, s.Balance.Get(statement.LongTermDebt, "2024-09-30"))
	assert.Equal(t, -9447000000.0, s.CashFlow.Get(statement.CapitalExpenditure, "2024-09-30"))
	assert.Equal(t, 0.0, s.Balance.GetLatest(statement.Inventory))
}

func TestParseTimeseriesErrors(t *testing.T) {
	_, _, err := ParseTimeseries("X", []byte(`{"timeseries":{"result":[],"error":{"code":"Bad Request","description":"Invalid symbol"}}}`))
	assert.ErrorContains(t, err, "Invalid symbol")

	_, _, err = ParseTimeseries("X", []byte(`not json`))
	assert.Error(t, err)

	s, _, err := ParseTimeseries("X", []byte(`{"timeseries":{"result":[],"error":null}}`))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Validate(), statement.ErrEmptyStatement)
}

func TestParseQuoteSummary(t *testing.T) {
	info, err := ParseQuoteSummary("AAPL", []byte(summaryBody))
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", info.Name)
	assert.Equal(t, "USD", info.Currency)
	require.NotNil(t, info.Beta)
	assert.Equal(t, 1.24, *info.Beta)
	require.NotNil(t, info.MarketCap)
	assert.Equal(t, 3.4e12, *info.MarketCap)
	require.NotNil(t, info.SharesOutstanding)
	assert.Equal(t, 15115800000.0, *info.SharesOutstanding)

	info, err = ParseQuoteSummary("NEW", []byte(`{"quoteSummary":{"result":[{"price":{"shortName":"NewCo","marketCap":{}}}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "NewCo", info.Name)
	assert.Nil(t, info.Beta)
	assert.Nil(t, info.MarketCap)

	_, err = ParseQuoteSummary("X", []byte(`{"quoteSummary":{"result":[],"error":null}}`))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMarketClientStatements(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/ws/fundamentals-timeseries/v1/finance/timeseries/AAPL", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("type"), "annualTotalEquityGrossMinorityInterest")
		assert.Equal(t, "false", r.URL.Query().Get("merge"))
		fmt.Fprint(w, timeseriesBody)
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second, "", WithMarketRateLimit(100, 10))
	s, err := c.Statements(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Ticker)
	assert.Equal(t, 391035000000.0, s.Income.GetLatest(statement.TotalRevenue))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMarketClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second, "")
	_, err := c.Statements(context.Background(), "AAPL")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "market", apiErr.Provider)
}

func TestMarketClientRejectsBadTicker(t *testing.T) {
	c := NewMarketClient("http://127.0.0.1:0", time.Second, "")
	_, err := c.Statements(context.Background(), "../etc")
	assert.ErrorIs(t, err, ErrInvalidTicker)
	_, err = c.Info(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidTicker)
}

func TestMarketClientInfoRefreshesStaleCrumb(t *testing.T) {
	var crumbs, summaries int32
	mux := http.NewServeMux()
	mux.HandleFunc("/seed", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session"})
	})
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&crumbs, 1)
		fmt.Fprintf(w, "crumb%d", n)
	})
	mux.HandleFunc("/v10/finance/quoteSummary/AAPL", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&summaries, 1)
		if r.URL.Query().Get("crumb") != "crumb2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, err := r.Cookie("A3")
		assert.NoError(t, err, "session cookie from the seed request")
		assert.True(t, strings.Contains(r.URL.Query().Get("modules"), "summaryDetail"))
		fmt.Fprint(w, summaryBody)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewMarketClient(srv.URL, time.Second, "", WithCrumbSeed(srv.URL+"/seed"), WithMarketRateLimit(100, 10))
	info, err := c.Info(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, info.Beta)
	assert.Equal(t, 1.24, *info.Beta)
	assert.Equal(t, int32(2), atomic.LoadInt32(&crumbs))
	assert.Equal(t, int32(2), atomic.LoadInt32(&summaries))
}

type mapCache struct {
	data  map[string][]byte
	loads int
}

func (m *mapCache) Fetch(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, ok := m.data[key]; ok {
		return b, nil
	}
	b, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	m.loads++
	m.data[key] = b
	return b, nil
}

func TestMarketClientUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, timeseriesBody)
	}))
	defer srv.Close()

	cache := &mapCache{data: map[string][]byte{}}
	c := NewMarketClient(srv.URL, time.Second, "", WithMarketCache(cache), WithMarketRateLimit(100, 10))
	for i := 0; i < 3; i++ {
		_, err := c.Statements(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Contains(t, cache.data, "market:timeseries:AAPL")
}

func TestNormalizeTicker(t *testing.T) {
	for in, want := range map[string]string{"aapl": "AAPL", " brk-b ": "BRK-B", "^gspc": "", "7203.T": "7203.T"} {
		got, err := NormalizeTicker(in)
		if want == "" {
			assert.ErrorIs(t, err, ErrInvalidTicker, in)
			continue
		}
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}
