// Package ingest fetches the upstream data the valuation pipeline consumes:
// statement tables and the info bag from the market-data provider, rate series
// from the macro provider and the Treasury feed, and a scraped beta fallback.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultUserAgent is sent on every upstream request.
	DefaultUserAgent = "valuation-dashboard/1.0"
)

var (
	// ErrInvalidTicker is returned for symbols that cannot be sent upstream.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrNoData is returned when a response parsed cleanly but carried no usable value.
	ErrNoData = errors.New("no data in response")
)

// APIError is a non-2xx answer from an upstream provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s (status: %d, endpoint: %s)", e.Provider, e.Message, e.StatusCode, e.Endpoint)
}

// Cache stores raw upstream bodies. The loader runs on a miss.
type Cache interface {
	Fetch(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error)
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-=^]{0,14}$`)

// NormalizeTicker upper-cases and validates a symbol.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, raw)
	}
	return t, nil
}

func newRestyClient(baseURL string, timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)
}

// getBody executes the request and returns the body, mapping non-2xx answers to *APIError.
func getBody(ctx context.Context, req *resty.Request, provider, path string, log zerolog.Logger) ([]byte, error) {
	start := time.Now()
	resp, err := req.SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("%s request %s: %w", provider, path, err)
	}

	log.Debug().
		Str("provider", provider).
		Str("endpoint", path).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("upstream request")

	if resp.IsError() {
		msg := strings.TrimSpace(string(resp.Body()))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode(),
			Message:    msg,
			Endpoint:   path,
		}
	}
	return resp.Body(), nil
}

// cached routes a loader through the cache when one is configured.
func cached(ctx context.Context, c Cache, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return loader(ctx)
	}
	return c.Fetch(ctx, key, loader)
}
