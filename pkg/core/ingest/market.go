package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"valuation_dashboard/pkg/core/statement"
)

const (
	// DefaultMarketURL is the market-data provider base URL.
	DefaultMarketURL = "https://query2.finance.yahoo.com"

	timeseriesPath   = "/ws/fundamentals-timeseries/v1/finance/timeseries/{symbol}"
	quoteSummaryPath = "/v10/finance/quoteSummary/{symbol}"
	crumbPath        = "/v1/test/getcrumb"

	annualPrefix = "annual"
	crumbTTL     = time.Hour
	historyYears = 10
)

// MarketClient reads annual statement tables and the info bag from the
// market-data provider.
type MarketClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	cache   Cache
	log     zerolog.Logger
	now     func() time.Time

	// quoteSummary needs a session cookie + crumb; seedURL sets the cookie.
	seedURL  string
	crumbMu  sync.Mutex
	crumb    string
	crumbExp time.Time
}

// MarketOption configures the MarketClient.
type MarketOption func(*MarketClient)

// WithMarketRateLimit sets the token bucket (requests per second, burst).
func WithMarketRateLimit(rps float64, burst int) MarketOption {
	return func(c *MarketClient) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMarketCache caches raw provider bodies.
func WithMarketCache(cache Cache) MarketOption {
	return func(c *MarketClient) { c.cache = cache }
}

// WithMarketLogger sets a logger.
func WithMarketLogger(log zerolog.Logger) MarketOption {
	return func(c *MarketClient) { c.log = log }
}

// WithCrumbSeed enables the cookie + crumb handshake before quote summary calls.
func WithCrumbSeed(seedURL string) MarketOption {
	return func(c *MarketClient) { c.seedURL = seedURL }
}

// NewMarketClient creates a market-data client.
func NewMarketClient(baseURL string, timeout time.Duration, userAgent string, opts ...MarketOption) *MarketClient {
	if baseURL == "" {
		baseURL = DefaultMarketURL
	}
	c := &MarketClient{
		http:    newRestyClient(baseURL, timeout, userAgent),
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// STATEMENTS
// =============================================================================

// Statements fetches the annual time series of every recognised label and
// sorts them into the three tables. Unknown keys are dropped and counted.
func (c *MarketClient) Statements(ctx context.Context, ticker string) (statement.Statements, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return statement.Statements{}, err
	}

	body, err := cached(ctx, c.cache, "market:timeseries:"+ticker, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		now := c.now()
		req := c.http.R().
			SetPathParam("symbol", ticker).
			SetQueryParams(map[string]string{
				"type":          timeseriesTypes(),
				"period1":       strconv.FormatInt(now.AddDate(-historyYears, 0, 0).Unix(), 10),
				"period2":       strconv.FormatInt(now.Unix(), 10),
				"merge":         "false",
				"padTimeSeries": "true",
			})
		return getBody(ctx, req, "market", timeseriesPath, c.log)
	})
	if err != nil {
		return statement.Statements{}, err
	}

	s, dropped, err := ParseTimeseries(ticker, body)
	if err != nil {
		return statement.Statements{}, err
	}
	if dropped > 0 {
		c.log.Debug().Str("ticker", ticker).Int("dropped", dropped).Msg("unrecognised line items dropped")
	}
	return s, nil
}

// timeseriesTypes is the comma-separated provider key list, sorted for stable URLs.
func timeseriesTypes() string {
	labels := statement.AllLabels()
	keys := make([]string, 0, len(labels))
	for _, l := range labels {
		keys = append(keys, annualPrefix+l.ProviderKey())
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// ParseTimeseries decodes a fundamentals time-series response. Each result
// carries its key in meta.type; points are {asOfDate, reportedValue.raw}.
// Null points and unknown keys are skipped; dropped counts the unknown keys.
func ParseTimeseries(ticker string, body []byte) (s statement.Statements, dropped int, err error) {
	if !gjson.ValidBytes(body) {
		return statement.Statements{}, 0, errors.New("timeseries: malformed JSON")
	}
	root := gjson.ParseBytes(body)
	if desc := root.Get("timeseries.error.description"); desc.Exists() && desc.String() != "" {
		return statement.Statements{}, 0, fmt.Errorf("timeseries: %s", desc.String())
	}

	s = statement.NewStatements(ticker)
	root.Get("timeseries.result").ForEach(func(_, r gjson.Result) bool {
		key := r.Get("meta.type.0").String()
		label, ok := statement.ParseLabel(strings.TrimPrefix(key, annualPrefix))
		if key == "" || !ok {
			dropped++
			return true
		}
		r.Get(key).ForEach(func(_, pt gjson.Result) bool {
			raw := pt.Get("reportedValue.raw")
			if pt.Type == gjson.Null || !raw.Exists() {
				return true
			}
			period, perr := statement.ParsePeriod(pt.Get("asOfDate").String())
			if perr != nil {
				return true
			}
			s.Set(label, period, raw.Float())
			return true
		})
		return true
	})
	return s, dropped, nil
}

// =============================================================================
// INFO BAG
// =============================================================================

// Info fetches name, currency, beta, market cap, shares outstanding and price.
func (c *MarketClient) Info(ctx context.Context, ticker string) (statement.Info, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return statement.Info{}, err
	}

	body, err := cached(ctx, c.cache, "market:summary:"+ticker, func(ctx context.Context) ([]byte, error) {
		b, err := c.fetchSummary(ctx, ticker)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized && c.seedURL != "" {
			// stale crumb: refresh once
			c.log.Debug().Str("ticker", ticker).Msg("crumb rejected, refreshing")
			c.resetCrumb()
			b, err = c.fetchSummary(ctx, ticker)
		}
		return b, err
	})
	if err != nil {
		return statement.Info{}, err
	}
	return ParseQuoteSummary(ticker, body)
}

func (c *MarketClient) fetchSummary(ctx context.Context, ticker string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req := c.http.R().
		SetPathParam("symbol", ticker).
		SetQueryParam("modules", "price,summaryDetail,defaultKeyStatistics")
	if c.seedURL != "" {
		crumb, err := c.getCrumb(ctx)
		if err != nil {
			return nil, fmt.Errorf("obtaining crumb: %w", err)
		}
		req.SetQueryParam("crumb", crumb)
	}
	return getBody(ctx, req, "market", quoteSummaryPath, c.log)
}

// ParseQuoteSummary extracts the info bag. Fields the provider omits stay nil.
func ParseQuoteSummary(ticker string, body []byte) (statement.Info, error) {
	if !gjson.ValidBytes(body) {
		return statement.Info{}, errors.New("quote summary: malformed JSON")
	}
	root := gjson.ParseBytes(body)
	if desc := root.Get("quoteSummary.error.description"); desc.Exists() && desc.String() != "" {
		return statement.Info{}, fmt.Errorf("quote summary: %s", desc.String())
	}
	res := root.Get("quoteSummary.result.0")
	if !res.Exists() {
		return statement.Info{}, fmt.Errorf("quote summary %s: %w", ticker, ErrNoData)
	}

	info := statement.Info{
		Ticker:            ticker,
		Name:              res.Get("price.longName").String(),
		Currency:          res.Get("price.currency").String(),
		Beta:              rawFloat(res, "summaryDetail.beta"),
		MarketCap:         rawFloat(res, "price.marketCap", "summaryDetail.marketCap"),
		SharesOutstanding: rawFloat(res, "defaultKeyStatistics.sharesOutstanding"),
		Price:             rawFloat(res, "price.regularMarketPrice"),
	}
	if info.Name == "" {
		info.Name = res.Get("price.shortName").String()
	}
	return info, nil
}

// rawFloat reads the first path whose {raw} is a number.
func rawFloat(r gjson.Result, paths ...string) *float64 {
	for _, p := range paths {
		v := r.Get(p + ".raw")
		if v.Type == gjson.Number {
			f := v.Float()
			return &f
		}
	}
	return nil
}

// =============================================================================
// CRUMB
// =============================================================================

// getCrumb visits the seed URL for session cookies, then fetches the crumb.
// Cached for an hour; the cookie jar lives on the resty client.
func (c *MarketClient) getCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()

	if c.crumb != "" && c.now().Before(c.crumbExp) {
		return c.crumb, nil
	}

	// 1. Seed cookies; the status is irrelevant
	if _, err := c.http.R().SetContext(ctx).Get(c.seedURL); err != nil {
		return "", fmt.Errorf("seed request failed: %w", err)
	}

	// 2. Crumb
	body, err := getBody(ctx, c.http.R(), "market", crumbPath, c.log)
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return "", errors.New("empty crumb returned")
	}

	c.crumb = crumb
	c.crumbExp = c.now().Add(crumbTTL)
	return crumb, nil
}

func (c *MarketClient) resetCrumb() {
	c.crumbMu.Lock()
	c.crumb = ""
	c.crumbExp = time.Time{}
	c.crumbMu.Unlock()
}
