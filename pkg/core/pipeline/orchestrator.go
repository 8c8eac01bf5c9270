package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"valuation_dashboard/pkg/core/config"
	"valuation_dashboard/pkg/core/statement"
	"valuation_dashboard/pkg/core/valuation"
)

// ErrDataUnavailable wraps failures to obtain the statement tables upstream.
var ErrDataUnavailable = errors.New("market data unavailable")

// StatementSource supplies the three statement tables and the info bag.
type StatementSource interface {
	Statements(ctx context.Context, ticker string) (statement.Statements, error)
	Info(ctx context.Context, ticker string) (statement.Info, error)
}

// RateSource supplies the current risk-free rate as a decimal.
type RateSource interface {
	Name() string
	RiskFreeRate(ctx context.Context) (float64, error)
}

// BetaSource supplies an equity beta when the info bag has none.
type BetaSource interface {
	Beta(ctx context.Context, ticker string) (float64, error)
}

// SeriesSource supplies a macro series for the working-capital overlay.
type SeriesSource interface {
	Series(ctx context.Context, id string, start time.Time) ([]valuation.Observation, error)
}

// Report is a Result stamped with a run identifier.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Result
}

// WorkingCapitalReport is the working-capital table with its optional macro overlay.
type WorkingCapitalReport struct {
	Ticker        string                            `json:"ticker"`
	Window        int                               `json:"window"`
	Periods       []valuation.WorkingCapitalMetrics `json:"periods"`
	OverlaySeries string                            `json:"overlay_series,omitempty"`
	Overlay       []valuation.OverlayPoint          `json:"overlay,omitempty"`
}

// Service gathers collaborator data and runs Compute. Sources are tried in
// order; the risk-free rate and beta fall back to the configured defaults.
type Service struct {
	market        StatementSource
	rates         []RateSource
	beta          BetaSource
	series        SeriesSource
	overlaySeries string
	assumptions   config.Assumptions
	log           zerolog.Logger
	now           func() time.Time
	newID         func() string
}

// Option configures the Service.
type Option func(*Service)

// WithRateSources sets the risk-free chain, tried in order.
func WithRateSources(sources ...RateSource) Option {
	return func(s *Service) { s.rates = sources }
}

// WithBetaSource sets the beta fallback used when the info bag has no beta.
func WithBetaSource(b BetaSource) Option {
	return func(s *Service) { s.beta = b }
}

// WithOverlaySeries enables the working-capital macro overlay.
func WithOverlaySeries(src SeriesSource, id string) Option {
	return func(s *Service) {
		s.series = src
		s.overlaySeries = id
	}
}

// WithLogger sets a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates the service.
func NewService(market StatementSource, a config.Assumptions, opts ...Option) *Service {
	s := &Service{
		market:      market,
		assumptions: a,
		log:         zerolog.Nop(),
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assumptions returns the assumptions the service runs with.
func (s *Service) Assumptions() config.Assumptions { return s.assumptions }

// Run fetches everything for the ticker and computes the report. period may
// be empty for the latest fiscal period.
func (s *Service) Run(ctx context.Context, ticker string, period statement.Period) (*Report, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	start := s.now()
	log := s.log.With().Str("ticker", ticker).Logger()

	// 1. Statements (required)
	st, err := s.statements(ctx, ticker)
	if err != nil {
		return nil, err
	}

	in := Inputs{Statements: st, Period: period}

	// 2. Info bag (optional; market cap becomes not computable)
	info, err := s.market.Info(ctx, ticker)
	if err != nil {
		log.Warn().Err(err).Msg("info bag unavailable")
		info = statement.Info{Ticker: ticker}
	}
	in.Info = info
	in.Sources.MarketCap = SourceProvider
	if info.MarketCap == nil {
		in.Sources.MarketCap = SourceMissing
	}

	// 3. Risk-free rate
	in.RiskFreeRate, in.Sources.RiskFreeRate, in.Sources.RiskFreeProvider = s.riskFreeRate(ctx, log)

	// 4. Beta
	in.Beta, in.Sources.Beta = s.equityBeta(ctx, ticker, info, log)

	// 5. Metrics
	res, err := Compute(in, s.assumptions)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("period", string(res.Period)).
		Float64("wacc", res.CostOfCapital.WACC).
		Float64("roic", res.Operating.ROIC).
		Dur("elapsed", s.now().Sub(start)).
		Msg("valuation run complete")

	return &Report{RunID: s.newID(), GeneratedAt: s.now().UTC(), Result: *res}, nil
}

// Forecast runs the pipeline and projects NOPAT forward.
func (s *Service) Forecast(ctx context.Context, ticker string, opts ForecastOptions) ([]valuation.ForecastPeriod, error) {
	rep, err := s.Run(ctx, ticker, "")
	if err != nil {
		return nil, err
	}
	return rep.Forecast(s.assumptions.Forecast, opts)
}

// WorkingCapital computes the working-capital table over the 3 or 5 most
// recent periods (0 uses the configured window). With overlay set and a series configured the
// macro reading at each period end is attached; overlay failures are logged
// and leave the table intact.
func (s *Service) WorkingCapital(ctx context.Context, ticker string, window int, overlay bool) (*WorkingCapitalReport, error) {
	if window == 0 {
		window = s.assumptions.WorkingCapitalWindow
	}
	if window != 3 && window != 5 {
		return nil, fmt.Errorf("%w: working-capital window must be 3 or 5, got %d", ErrInvalidOption, window)
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	st, err := s.statements(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}

	rep := &WorkingCapitalReport{
		Ticker:  ticker,
		Window:  window,
		Periods: valuation.AnalyzeWorkingCapital(st, window),
	}
	if !overlay || s.series == nil || s.overlaySeries == "" || len(rep.Periods) == 0 {
		return rep, nil
	}

	periods := make([]statement.Period, len(rep.Periods))
	for i, m := range rep.Periods {
		periods[i] = m.Period
	}
	// a year of lead so the oldest period has a reading
	from := periods[len(periods)-1].Time().AddDate(-1, 0, 0)
	obs, err := s.series.Series(ctx, s.overlaySeries, from)
	if err != nil {
		s.log.Warn().Err(err).Str("series", s.overlaySeries).Msg("overlay series unavailable")
		return rep, nil
	}
	rep.OverlaySeries = s.overlaySeries
	rep.Overlay = valuation.MacroOverlay(periods, obs)
	return rep, nil
}

func (s *Service) statements(ctx context.Context, ticker string) (statement.Statements, error) {
	if ticker == "" {
		return statement.Statements{}, errors.New("ticker is required")
	}
	st, err := s.market.Statements(ctx, ticker)
	if err != nil {
		if errors.Is(err, statement.ErrEmptyStatement) || errors.Is(err, context.Canceled) {
			return statement.Statements{}, err
		}
		return statement.Statements{}, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, ticker, err)
	}
	if st.Ticker == "" {
		st.Ticker = ticker
	}
	return st, nil
}

func (s *Service) riskFreeRate(ctx context.Context, log zerolog.Logger) (float64, Source, string) {
	for _, src := range s.rates {
		rf, err := src.RiskFreeRate(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", src.Name()).Msg("risk-free source failed")
			continue
		}
		return rf, SourceProvider, src.Name()
	}
	log.Warn().Float64("default", s.assumptions.DefaultRiskFreeRate).Msg("using default risk-free rate")
	return s.assumptions.DefaultRiskFreeRate, SourceDefault, ""
}

func (s *Service) equityBeta(ctx context.Context, ticker string, info statement.Info, log zerolog.Logger) (float64, Source) {
	if info.Beta != nil {
		return *info.Beta, SourceProvider
	}
	if s.beta != nil {
		b, err := s.beta.Beta(ctx, ticker)
		if err == nil {
			return b, SourceScrape
		}
		log.Warn().Err(err).Msg("beta scrape failed")
	}
	log.Warn().Float64("default", s.assumptions.DefaultBeta).Msg("using default beta")
	return s.assumptions.DefaultBeta, SourceDefault
}
