package valuation

import (
	"valuation_dashboard/pkg/core/statement"
)

const daysPerYear = 365

// WorkingCapitalMetrics are the day-based working-capital figures of one period.
type WorkingCapitalMetrics struct {
	Period              statement.Period `json:"period"`
	Inventory           float64          `json:"inventory"`
	AccountsReceivable  float64          `json:"accounts_receivable"`
	AccountsPayable     float64          `json:"accounts_payable"`
	DaysInventory       Estimate         `json:"days_inventory_outstanding"`
	DaysSales           Estimate         `json:"days_sales_outstanding"`
	DaysPayable         Estimate         `json:"days_payable_outstanding"`
	CashConversionCycle float64          `json:"cash_conversion_cycle"`
	NetWorkingCapital   float64          `json:"net_working_capital"`
	ChangeInNWC         Estimate         `json:"change_in_nwc"`
}

// WorkingCapitalPeriod computes the day metrics for a single period.
// The cycle is DIO + DPO - DSO with any not-computable component counted as 0.
func WorkingCapitalPeriod(s statement.Statements, period statement.Period) WorkingCapitalMetrics {
	inv := s.Balance.Get(statement.Inventory, period)
	ar := s.Balance.Get(statement.AccountsReceivable, period)
	ap := s.Balance.Get(statement.AccountsPayable, period)
	cogs := s.Income.Get(statement.CostOfRevenue, period)
	revenue := s.Income.Get(statement.TotalRevenue, period)

	m := WorkingCapitalMetrics{
		Period:             period,
		Inventory:          inv,
		AccountsReceivable: ar,
		AccountsPayable:    ap,
		DaysInventory:      daysOf(inv, cogs),
		DaysSales:          daysOf(ar, revenue),
		DaysPayable:        daysOf(ap, cogs),
		NetWorkingCapital:  inv + ar - ap,
	}
	m.CashConversionCycle = m.DaysInventory.OrZero() + m.DaysPayable.OrZero() - m.DaysSales.OrZero()
	return m
}

// AnalyzeWorkingCapital computes the metrics over the most recent `window`
// balance-sheet periods, most recent first. Each period's change in NWC is
// taken against the next-older period in the window; the oldest has none.
func AnalyzeWorkingCapital(s statement.Statements, window int) []WorkingCapitalMetrics {
	periods := s.Balance.Periods()
	if window > 0 && len(periods) > window {
		periods = periods[:window]
	}

	out := make([]WorkingCapitalMetrics, len(periods))
	for i, p := range periods {
		out[i] = WorkingCapitalPeriod(s, p)
	}
	for i := 0; i < len(out)-1; i++ {
		out[i].ChangeInNWC = Computed(out[i].NetWorkingCapital - out[i+1].NetWorkingCapital)
	}
	return out
}

func daysOf(balance, flow float64) Estimate {
	if flow == 0 {
		return NotComputable
	}
	return Computed(balance / flow * daysPerYear)
}
