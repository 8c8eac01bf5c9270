package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultBetaURL is the quote snapshot page scraped for beta.
const DefaultBetaURL = "https://finviz.com/quote.ashx"

// BetaScraper reads beta from an HTML snapshot table, where a cell labelled
// "Beta" is followed by its value cell.
type BetaScraper struct {
	http  *resty.Client
	cache Cache
	log   zerolog.Logger
}

// NewBetaScraper creates the scraper.
func NewBetaScraper(url string, timeout time.Duration, userAgent string, cache Cache, log zerolog.Logger) *BetaScraper {
	if url == "" {
		url = DefaultBetaURL
	}
	return &BetaScraper{
		http:  newRestyClient(url, timeout, userAgent),
		cache: cache,
		log:   log,
	}
}

// Beta fetches the snapshot page for the ticker and extracts beta.
func (s *BetaScraper) Beta(ctx context.Context, ticker string) (float64, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return 0, err
	}
	body, err := cached(ctx, s.cache, "beta:"+ticker, func(ctx context.Context) ([]byte, error) {
		return getBody(ctx, s.http.R().SetQueryParam("t", ticker), "beta", "", s.log)
	})
	if err != nil {
		return 0, err
	}
	return ParseBeta(body)
}

// ParseBeta finds the "Beta" label cell and parses the next cell. A dash
// (no estimate) reports ErrNoData.
func ParseBeta(body []byte) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		beta  float64
		found bool
		perr  error
	)
	doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if strings.TrimSpace(cell.Text()) != "Beta" {
			return true
		}
		raw := strings.TrimSpace(cell.Next().Text())
		if raw == "" || raw == "-" {
			perr = fmt.Errorf("beta: %w", ErrNoData)
			return false
		}
		beta, perr = strconv.ParseFloat(raw, 64)
		found = perr == nil
		return false
	})
	if perr != nil {
		return 0, perr
	}
	if !found {
		return 0, fmt.Errorf("beta cell: %w", ErrNoData)
	}
	return beta, nil
}
