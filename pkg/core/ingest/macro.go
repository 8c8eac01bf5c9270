package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"valuation_dashboard/pkg/core/statement"
	"valuation_dashboard/pkg/core/valuation"
)

const (
	// DefaultMacroURL is the macro series provider base URL.
	DefaultMacroURL = "https://api.stlouisfed.org/fred"

	observationsPath = "/series/observations"

	// missingValue marks a gap in a FRED series.
	missingValue = "."
)

// MacroClient reads observation series from a FRED-style provider.
type MacroClient struct {
	http   *resty.Client
	apiKey string
	series string // risk-free series id, e.g. DGS10
	cache  Cache
	log    zerolog.Logger
}

// NewMacroClient creates a macro client. riskFreeSeries names the series
// RiskFreeRate reads; its values are percentages.
func NewMacroClient(baseURL, apiKey, riskFreeSeries string, timeout time.Duration, userAgent string, cache Cache, log zerolog.Logger) *MacroClient {
	if baseURL == "" {
		baseURL = DefaultMacroURL
	}
	return &MacroClient{
		http:   newRestyClient(baseURL, timeout, userAgent),
		apiKey: apiKey,
		series: riskFreeSeries,
		cache:  cache,
		log:    log,
	}
}

// Name identifies the source in the run's provenance.
func (c *MacroClient) Name() string { return "macro:" + c.series }

// RiskFreeRate returns the latest observation of the risk-free series as a decimal.
func (c *MacroClient) RiskFreeRate(ctx context.Context) (float64, error) {
	obs, err := c.observations(ctx, c.series, time.Time{}, 10, "desc")
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, fmt.Errorf("series %s: %w", c.series, ErrNoData)
	}
	// desc order: newest first
	return obs[0].Value / 100, nil
}

// Series returns the observations of id since start, oldest first, values as reported.
func (c *MacroClient) Series(ctx context.Context, id string, start time.Time) ([]valuation.Observation, error) {
	obs, err := c.observations(ctx, id, start, 0, "asc")
	if err != nil {
		return nil, err
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	return obs, nil
}

func (c *MacroClient) observations(ctx context.Context, id string, start time.Time, limit int, order string) ([]valuation.Observation, error) {
	if id == "" {
		return nil, errors.New("series id required")
	}
	params := map[string]string{
		"series_id":  id,
		"file_type":  "json",
		"sort_order": order,
	}
	if c.apiKey != "" {
		params["api_key"] = c.apiKey
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	key := []string{"macro", id, order}
	if !start.IsZero() {
		params["observation_start"] = start.Format(statement.PeriodLayout)
		key = append(key, params["observation_start"])
	}

	body, err := cached(ctx, c.cache, strings.Join(key, ":"), func(ctx context.Context) ([]byte, error) {
		return getBody(ctx, c.http.R().SetQueryParams(params), "macro", observationsPath, c.log)
	})
	if err != nil {
		return nil, err
	}
	return ParseObservations(body)
}

// ParseObservations decodes {observations:[{date,value}]}, skipping "." gaps
// and anything that is not a number. Order follows the response.
func ParseObservations(body []byte) ([]valuation.Observation, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("observations: malformed JSON")
	}
	root := gjson.ParseBytes(body)
	if msg := root.Get("error_message"); msg.Exists() {
		return nil, fmt.Errorf("observations: %s", msg.String())
	}

	var out []valuation.Observation
	root.Get("observations").ForEach(func(_, o gjson.Result) bool {
		raw := strings.TrimSpace(o.Get("value").String())
		if raw == "" || raw == missingValue {
			return true
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return true
		}
		d, err := time.Parse(statement.PeriodLayout, o.Get("date").String())
		if err != nil {
			return true
		}
		out = append(out, valuation.Observation{Date: d, Value: v})
		return true
	})
	return out, nil
}
