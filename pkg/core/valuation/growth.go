package valuation

// Growth holds the reinvestment-driven sustainable growth of one period.
type Growth struct {
	ChangeInInvestedCapital float64 `json:"change_in_invested_capital"`
	ReinvestmentRate        float64 `json:"reinvestment_rate"`
	GrowthRate              float64 `json:"growth_rate"`
}

// ValuationResult compares perpetuity values against the market.
type ValuationResult struct {
	NoGrowth   Estimate `json:"valuation_no_growth"`
	WithGrowth Estimate `json:"valuation_with_growth"`
	MarketCap  Estimate `json:"market_capitalization"`
	Variance   Estimate `json:"valuation_variance"`
}

// ChangeInInvestedCapital is net new investment beyond maintenance:
// |capex| - D&A + ΔWC.
func ChangeInInvestedCapital(capexMagnitude, depreciation, changeInWorkingCapital float64) float64 {
	return capexMagnitude - depreciation + changeInWorkingCapital
}

// ReinvestmentRate = ΔIC / NOPAT. A shrinking (or unchanged) invested base,
// a non-positive NOPAT or a zero invested-capital base all give 0.
func ReinvestmentRate(changeInInvestedCapital, nopat, investedCapital float64) float64 {
	if nopat <= 0 || changeInInvestedCapital <= 0 || investedCapital == 0 {
		return 0
	}
	return changeInInvestedCapital / nopat
}

// SustainableGrowth = reinvestment rate * ROIC.
func SustainableGrowth(reinvestmentRate, roic float64) float64 {
	return reinvestmentRate * roic
}

// CalculateGrowth derives reinvestment and growth from the operating figures.
func CalculateGrowth(in OperatingInputs, op OperatingPerformance, investedCapital float64) Growth {
	dIC := ChangeInInvestedCapital(op.CapexMagnitude, in.DepreciationAmort, in.ChangeInWorkingCapital)
	reinvestment := ReinvestmentRate(dIC, op.NOPAT, investedCapital)
	return Growth{
		ChangeInInvestedCapital: dIC,
		ReinvestmentRate:        reinvestment,
		GrowthRate:              SustainableGrowth(reinvestment, op.ROIC),
	}
}

// PerpetuityNoGrowth = NOPAT / WACC.
func PerpetuityNoGrowth(nopat, wacc float64) Estimate {
	return divide(nopat, wacc)
}

// PerpetuityWithGrowth = NOPAT / (WACC - g). The formula diverges when
// g >= WACC, which is reported as NotComputable.
func PerpetuityWithGrowth(nopat, wacc, growth float64) Estimate {
	if wacc <= growth {
		return NotComputable
	}
	return Computed(nopat / (wacc - growth))
}

// Value runs both perpetuity formulas and the market comparison.
func Value(nopat, wacc, growth float64, marketCap Estimate) ValuationResult {
	res := ValuationResult{
		NoGrowth:   PerpetuityNoGrowth(nopat, wacc),
		WithGrowth: PerpetuityWithGrowth(nopat, wacc, growth),
		MarketCap:  marketCap,
	}
	if res.WithGrowth.Computable && marketCap.Computable {
		res.Variance = Computed(marketCap.Value - res.WithGrowth.Value)
	}
	return res
}
