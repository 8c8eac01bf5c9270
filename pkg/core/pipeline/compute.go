// Package pipeline runs the metric derivation for one subject: capital
// structure, cost of capital, operating performance, growth, valuation,
// enterprise bridge and working capital.
package pipeline

import (
	"errors"
	"fmt"

	"valuation_dashboard/pkg/core/config"
	"valuation_dashboard/pkg/core/statement"
	"valuation_dashboard/pkg/core/valuation"
)

// ErrUnknownPeriod is returned when a requested fiscal period has no balance sheet.
var ErrUnknownPeriod = errors.New("fiscal period not reported")

// ErrInvalidOption is returned for a forecast or working-capital option
// outside its accepted range.
var ErrInvalidOption = errors.New("invalid option")

// Source tags where a market input came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceScrape   Source = "scrape"
	SourceDefault  Source = "default"
	SourceMissing  Source = "unavailable"
)

// Sources records the provenance of the market inputs so the display layer
// can flag defaulted values.
type Sources struct {
	RiskFreeRate     Source `json:"risk_free_rate"`
	RiskFreeProvider string `json:"risk_free_provider,omitempty"`
	Beta             Source `json:"beta"`
	MarketCap        Source `json:"market_cap"`
}

// Inputs is everything Compute needs. It holds no clients; the same Inputs
// always produce the same Result.
type Inputs struct {
	Statements   statement.Statements
	Info         statement.Info
	Period       statement.Period // empty selects the latest balance-sheet period
	RiskFreeRate float64
	Beta         float64
	Sources      Sources
}

// Result is the full metric set of one run.
type Result struct {
	Ticker      string                        `json:"ticker"`
	Name        string                        `json:"name,omitempty"`
	Currency    string                        `json:"currency,omitempty"`
	Period      statement.Period              `json:"period"`
	Conventions valuation.Conventions         `json:"conventions"`
	Sources     Sources                       `json:"sources"`
	Rates       valuation.CostOfCapitalInputs `json:"cost_of_capital_inputs"`

	Capital        valuation.CapitalStructure        `json:"capital_structure"`
	CostOfCapital  valuation.CostOfCapital           `json:"cost_of_capital"`
	OperatingData  valuation.OperatingInputs         `json:"operating_inputs"`
	Operating      valuation.OperatingPerformance    `json:"operating_performance"`
	Growth         valuation.Growth                  `json:"growth"`
	Valuation      valuation.ValuationResult         `json:"valuation"`
	Enterprise     valuation.EnterpriseView          `json:"enterprise"`
	WorkingCapital []valuation.WorkingCapitalMetrics `json:"working_capital"`

	SharesOutstanding valuation.Estimate `json:"shares_outstanding"`
}

// Compute derives every metric for the period. It fails only when a whole
// statement table is empty or the requested period was never reported.
func Compute(in Inputs, a config.Assumptions) (*Result, error) {
	s := in.Statements

	// 1. Guard against absent tables
	if err := s.Validate(); err != nil {
		return nil, err
	}

	// 2. Resolve the period
	period := in.Period
	if period == "" {
		period, _ = s.LatestPeriod()
	} else if !s.Balance.HasPeriod(period) {
		return nil, fmt.Errorf("%s %s: %w", s.Ticker, period, ErrUnknownPeriod)
	}

	conv := a.Conventions

	// 3. Capital structure
	cs := valuation.BuildCapitalStructure(s.Balance, period, conv.InvestedCapital)

	// 4. Operating performance
	opIn := valuation.ReadOperatingInputs(s, period)
	op := valuation.CalculateOperating(opIn, cs.InvestedCapital, a.FallbackTaxRate, conv)

	// 5. Cost of capital; the marginal rate overrides the effective rate when set
	taxRate := op.EffectiveTaxRate
	if a.MarginalTaxRate != nil {
		taxRate = *a.MarginalTaxRate
	}
	rates := valuation.CostOfCapitalInputs{
		RiskFreeRate:       in.RiskFreeRate,
		EquityBeta:         in.Beta,
		MarketRiskPremium:  a.MarketRiskPremium,
		CreditSpread:       a.CreditSpread,
		TaxRate:            taxRate,
		TargetDebtToEquity: a.TargetDebtToEquity,
	}
	coc := valuation.CalculateCostOfCapital(rates, cs, conv.CostOfCapitalModel)

	// 6. Growth and valuation
	growth := valuation.CalculateGrowth(opIn, op, cs.InvestedCapital)
	marketCap := valuation.Ptr(in.Info.MarketCap)
	val := valuation.Value(op.NOPAT, coc.WACC, growth.GrowthRate, marketCap)

	// 7. Enterprise bridge and working capital
	ent := valuation.BuildEnterpriseView(s.Balance, period, cs, val.NoGrowth, marketCap)
	wc := valuation.AnalyzeWorkingCapital(s, a.WorkingCapitalWindow)

	return &Result{
		Ticker:            s.Ticker,
		Name:              in.Info.Name,
		Currency:          in.Info.Currency,
		Period:            period,
		Conventions:       conv,
		Sources:           in.Sources,
		Rates:             rates,
		Capital:           cs,
		CostOfCapital:     coc,
		OperatingData:     opIn,
		Operating:         op,
		Growth:            growth,
		Valuation:         val,
		Enterprise:        ent,
		WorkingCapital:    wc,
		SharesOutstanding: valuation.Ptr(in.Info.SharesOutstanding),
	}, nil
}

// ForecastOptions override the configured forecast defaults. Nil keeps the default.
type ForecastOptions struct {
	Horizon              *int
	GrowthRate           *float64
	ReinvestmentFraction *float64
}

// Forecast projects the result's NOPAT. Growth defaults to the configured
// rate, or the run's sustainable growth when none is configured.
func (r *Result) Forecast(defaults config.ForecastDefaults, opts ForecastOptions) ([]valuation.ForecastPeriod, error) {
	in := valuation.ForecastInput{
		BaseNOPAT:            r.Operating.NOPAT,
		GrowthRate:           r.Growth.GrowthRate,
		ReinvestmentFraction: defaults.ReinvestmentFraction,
		WACC:                 r.CostOfCapital.WACC,
		SharesOutstanding:    r.SharesOutstanding,
		Horizon:              defaults.Horizon,
	}
	if defaults.GrowthRate != nil {
		in.GrowthRate = *defaults.GrowthRate
	}
	if opts.Horizon != nil {
		in.Horizon = *opts.Horizon
	}
	if opts.GrowthRate != nil {
		in.GrowthRate = *opts.GrowthRate
	}
	if opts.ReinvestmentFraction != nil {
		in.ReinvestmentFraction = *opts.ReinvestmentFraction
	}
	rows, err := valuation.Forecast(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return rows, nil
}
