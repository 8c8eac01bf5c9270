package valuation

import (
	"sort"
	"time"

	"valuation_dashboard/pkg/core/statement"
)

// Observation is one dated point of a macroeconomic series.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// OverlayPoint pairs a working-capital period with the macro reading in force
// at its period end.
type OverlayPoint struct {
	Period          statement.Period `json:"period"`
	ObservationDate *time.Time       `json:"observation_date,omitempty"`
	Value           Estimate         `json:"value"`
}

// MacroOverlay takes, for each period, the latest observation dated on or
// before the period end. Periods that predate the series get NotComputable.
// The observations need not be sorted.
func MacroOverlay(periods []statement.Period, series []Observation) []OverlayPoint {
	obs := make([]Observation, len(series))
	copy(obs, series)
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	out := make([]OverlayPoint, 0, len(periods))
	for _, p := range periods {
		pt := OverlayPoint{Period: p}
		end := p.Time()
		// first observation strictly after the period end
		i := sort.Search(len(obs), func(i int) bool { return obs[i].Date.After(end) })
		if i > 0 {
			o := obs[i-1]
			d := o.Date
			pt.ObservationDate = &d
			pt.Value = Computed(o.Value)
		}
		out = append(out, pt)
	}
	return out
}
