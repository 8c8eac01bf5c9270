package valuation

import (
	"valuation_dashboard/pkg/core/statement"
)

// CapitalStructure is the book capital base of one period.
type CapitalStructure struct {
	LongTermDebt    float64               `json:"long_term_debt"`
	CurrentDebt     float64               `json:"current_debt"`
	TotalDebt       float64               `json:"total_debt"`
	TotalEquity     float64               `json:"total_equity"`
	InvestedCapital float64               `json:"invested_capital"`
	Source          InvestedCapitalSource `json:"invested_capital_source"`
	DebtWeight      float64               `json:"debt_weight"`
	EquityWeight    float64               `json:"equity_weight"`
}

// DebtToEquity is D/E on book values, 0 when equity is not positive.
func (c CapitalStructure) DebtToEquity() float64 {
	if c.TotalEquity <= 0 {
		return 0
	}
	return c.TotalDebt / c.TotalEquity
}

// BuildCapitalStructure reads debt, equity and invested capital from the
// balance sheet for the period.
func BuildCapitalStructure(bs *statement.Table, period statement.Period, source InvestedCapitalSource) CapitalStructure {
	ltd := bs.Get(statement.LongTermDebt, period)
	cd, _ := bs.FirstOf(period, statement.CurrentDebt, statement.ShortTermDebt)
	equity := bs.Get(statement.TotalEquityGrossMinorityInterest, period)

	var reported *float64
	if source != SourceDerived {
		if v, ok := bs.Lookup(statement.InvestedCapital, period); ok && v != 0 {
			reported = &v
		}
	}

	cs := NewCapitalStructure(ltd+cd, equity, reported)
	cs.LongTermDebt = ltd
	cs.CurrentDebt = cd
	return cs
}

// NewCapitalStructure builds the structure from debt and equity. A reported
// invested-capital figure replaces debt + equity only when that base is
// non-zero: the weights are always taken over debt + equity, and a run with
// nothing to weight falls back to the derived source so invested capital,
// ROIC and WACC share one base.
func NewCapitalStructure(debt, equity float64, reportedInvestedCapital *float64) CapitalStructure {
	base := debt + equity
	cs := CapitalStructure{
		TotalDebt:       debt,
		TotalEquity:     equity,
		InvestedCapital: base,
		Source:          SourceDerived,
	}
	if base == 0 {
		return cs
	}
	if reportedInvestedCapital != nil {
		cs.InvestedCapital = *reportedInvestedCapital
		cs.Source = SourceReported
	}
	cs.DebtWeight = debt / base
	cs.EquityWeight = equity / base
	return cs
}
