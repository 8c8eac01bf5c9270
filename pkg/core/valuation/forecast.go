package valuation

import (
	"fmt"
	"math"
)

// ForecastInput parameters for the forward projection.
type ForecastInput struct {
	BaseNOPAT            float64  `json:"base_nopat"` // latest actual, period 0
	GrowthRate           float64  `json:"growth_rate"`
	ReinvestmentFraction float64  `json:"reinvestment_fraction"`
	WACC                 float64  `json:"wacc"`
	SharesOutstanding    Estimate `json:"shares_outstanding"`
	Horizon              int      `json:"horizon"`
}

// ForecastPeriod is one horizon of the projection.
type ForecastPeriod struct {
	Period          int      `json:"period"`
	NOPAT           float64  `json:"nopat"`
	ValueNoGrowth   Estimate `json:"value_no_growth"`
	ValueWithGrowth Estimate `json:"value_with_growth"`
	PriceNoGrowth   Estimate `json:"price_no_growth"`
	PriceWithGrowth Estimate `json:"price_with_growth"`
	// PresentValue of the projected NOPAT for periods 1..Period at WACC.
	PresentValue Estimate `json:"present_value"`
}

// Forecast compounds NOPAT from period 0 (unescalated) through the horizon
// and applies both perpetuity formulas at every step. The growing perpetuity
// capitalises the cash left after reinvestment: NOPAT*(1-b)/(WACC-g).
func Forecast(in ForecastInput) ([]ForecastPeriod, error) {
	if in.Horizon < 0 {
		return nil, fmt.Errorf("forecast horizon must be non-negative, got %d", in.Horizon)
	}
	if !finite(in.GrowthRate) || in.GrowthRate <= -1 {
		return nil, fmt.Errorf("forecast growth rate must be a finite number above -1, got %g", in.GrowthRate)
	}
	if !finite(in.ReinvestmentFraction) || in.ReinvestmentFraction < 0 || in.ReinvestmentFraction > 1 {
		return nil, fmt.Errorf("reinvestment fraction must be within [0,1], got %g", in.ReinvestmentFraction)
	}
	if !finite(in.BaseNOPAT) || !finite(in.WACC) {
		return nil, fmt.Errorf("forecast base must be finite, got nopat=%g wacc=%g", in.BaseNOPAT, in.WACC)
	}

	out := make([]ForecastPeriod, 0, in.Horizon+1)
	flows := make([]float64, 0, in.Horizon)
	for t := 0; t <= in.Horizon; t++ {
		nopat := in.BaseNOPAT * math.Pow(1+in.GrowthRate, float64(t))
		if !finite(nopat) {
			return nil, fmt.Errorf("forecast NOPAT overflows at period %d (growth %g)", t, in.GrowthRate)
		}
		if t > 0 {
			flows = append(flows, nopat)
		}
		p := ForecastPeriod{
			Period:          t,
			NOPAT:           nopat,
			ValueNoGrowth:   PerpetuityNoGrowth(nopat, in.WACC),
			ValueWithGrowth: PerpetuityWithGrowth(nopat*(1-in.ReinvestmentFraction), in.WACC, in.GrowthRate),
			PresentValue:    PresentValue(flows, in.WACC),
		}
		p.PriceNoGrowth = perShare(p.ValueNoGrowth, in.SharesOutstanding)
		p.PriceWithGrowth = perShare(p.ValueWithGrowth, in.SharesOutstanding)
		out = append(out, p)
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func perShare(value, shares Estimate) Estimate {
	if !value.Computable || !shares.Computable {
		return NotComputable
	}
	return divide(value.Value, shares.Value)
}
