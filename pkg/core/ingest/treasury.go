package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultTreasuryURL serves the daily par yield curve as an Atom/XML feed.
const DefaultTreasuryURL = "https://home.treasury.gov/resource-center/data-chart-center/interest-rates/pages/xml"

// TreasuryClient reads the 10-year par yield from the Treasury XML feed. It
// is the second source in the risk-free chain.
type TreasuryClient struct {
	http  *resty.Client
	cache Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewTreasuryClient creates a Treasury feed client.
func NewTreasuryClient(url string, timeout time.Duration, userAgent string, cache Cache, log zerolog.Logger) *TreasuryClient {
	if url == "" {
		url = DefaultTreasuryURL
	}
	return &TreasuryClient{
		http:  newRestyClient(url, timeout, userAgent),
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// Name identifies the source in the run's provenance.
func (c *TreasuryClient) Name() string { return "treasury:BC_10YEAR" }

// RiskFreeRate returns the latest 10-year yield as a decimal. The feed is
// monthly; early in a month it may be empty, so the previous month is tried.
func (c *TreasuryClient) RiskFreeRate(ctx context.Context) (float64, error) {
	now := c.now()
	var lastErr error
	for _, month := range []time.Time{now, now.AddDate(0, -1, 0)} {
		ym := month.Format("200601")
		body, err := cached(ctx, c.cache, "treasury:"+ym, func(ctx context.Context) ([]byte, error) {
			req := c.http.R().SetQueryParams(map[string]string{
				"data":                       "daily_treasury_yield_curve",
				"field_tdr_date_value_month": ym,
			})
			return getBody(ctx, req, "treasury", "", c.log)
		})
		if err != nil {
			lastErr = err
			continue
		}
		_, yield, err := ParseTreasuryYield(body)
		if err != nil {
			lastErr = err
			continue
		}
		return yield / 100, nil
	}
	return 0, lastErr
}

// ParseTreasuryYield returns the date and BC_10YEAR value (percent) of the
// latest entry in the feed.
func ParseTreasuryYield(body []byte) (time.Time, float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return time.Time{}, 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	var (
		latest time.Time
		yield  float64
		found  bool
	)
	for _, props := range doc.FindElements("//properties") {
		dateEl := props.SelectElement("NEW_DATE")
		yieldEl := props.SelectElement("BC_10YEAR")
		if dateEl == nil || yieldEl == nil {
			continue
		}
		d, err := parseTreasuryDate(dateEl.Text())
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(yieldEl.Text()), 64)
		if err != nil {
			continue
		}
		if !found || d.After(latest) {
			latest, yield, found = d, v, true
		}
	}
	if !found {
		return time.Time{}, 0, errors.New("no 10-year yield found in XML")
	}
	return latest, yield, nil
}

func parseTreasuryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised treasury date %q", s)
}
