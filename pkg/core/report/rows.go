package report

import (
	"valuation_dashboard/pkg/core/pipeline"
	"valuation_dashboard/pkg/core/valuation"
)

// Section groups summary rows.
type Section string

const (
	SectionInputs     Section = "Market inputs"
	SectionCapital    Section = "Capital structure"
	SectionCost       Section = "Cost of capital"
	SectionOperating  Section = "Operating performance"
	SectionGrowth     Section = "Growth"
	SectionValuation  Section = "Valuation"
	SectionEnterprise Section = "Enterprise bridge"
)

// Row is one formatted metric. Note flags defaulted or fallback inputs.
type Row struct {
	Section Section `json:"section"`
	Metric  string  `json:"metric"`
	Value   string  `json:"value"`
	Note    string  `json:"note,omitempty"`
}

// WorkingCapitalRow is one formatted period of the working-capital table.
type WorkingCapitalRow struct {
	Period            string `json:"period"`
	DaysInventory     string `json:"dio"`
	DaysSales         string `json:"dso"`
	DaysPayable       string `json:"dpo"`
	CashConversion    string `json:"ccc"`
	NetWorkingCapital string `json:"nwc"`
	ChangeInNWC       string `json:"change_in_nwc"`
	Overlay           string `json:"overlay,omitempty"`
}

// Rows flattens a report into display rows in a fixed order.
func Rows(rep *pipeline.Report) []Row {
	var rows []Row
	add := func(s Section, metric, value, note string) {
		rows = append(rows, Row{Section: s, Metric: metric, Value: value, Note: note})
	}

	// 1. Inputs, flagged by provenance
	rates := rep.Rates
	add(SectionInputs, "Risk-free rate", Percent(rates.RiskFreeRate), riskFreeNote(rep.Sources))
	add(SectionInputs, "Equity beta", Ratio(rates.EquityBeta), sourceNote(rep.Sources.Beta))
	add(SectionInputs, "Market risk premium", Percent(rates.MarketRiskPremium), "")
	add(SectionInputs, "Credit spread", Percent(rates.CreditSpread), "")
	add(SectionInputs, "Tax rate (cost of debt)", Percent(rates.TaxRate), "")

	// 2. Capital structure
	cs := rep.Capital
	add(SectionCapital, "Total debt", Money(cs.TotalDebt), "")
	add(SectionCapital, "Total equity", Money(cs.TotalEquity), "")
	add(SectionCapital, "Invested capital", Money(cs.InvestedCapital), string(cs.Source))
	add(SectionCapital, "Debt weight", Percent(cs.DebtWeight), "")
	add(SectionCapital, "Equity weight", Percent(cs.EquityWeight), "")

	// 3. Cost of capital
	coc := rep.CostOfCapital
	add(SectionCost, "Cost of equity", Percent(coc.CostOfEquity), string(coc.Model))
	add(SectionCost, "Cost of debt (pre-tax)", Percent(coc.CostOfDebt), "")
	add(SectionCost, "Cost of debt (after tax)", Percent(coc.AfterTaxCostDebt), "")
	if coc.Model == valuation.ModelRelevered {
		add(SectionCost, "Asset beta", Ratio(coc.AssetBeta), "")
		add(SectionCost, "Debt beta", Ratio(coc.DebtBeta), "")
		add(SectionCost, "Relevered beta", Ratio(coc.LeveredBeta), "")
	}
	add(SectionCost, "WACC", Percent(coc.WACC), "")

	// 4. Operating performance
	op := rep.Operating
	taxNote := ""
	if op.TaxRateIsFallback {
		taxNote = "fallback"
	}
	add(SectionOperating, "Revenue", Money(rep.OperatingData.Revenue), "")
	add(SectionOperating, "EBIT", Money(rep.OperatingData.EBIT), "")
	add(SectionOperating, "Effective tax rate", Percent(op.EffectiveTaxRate), taxNote)
	add(SectionOperating, "NOPAT", Money(op.NOPAT), string(op.Basis))
	add(SectionOperating, "Free cash flow", Money(op.FreeCashFlow), string(rep.Conventions.CapexSign))
	add(SectionOperating, "ROIC", Percent(op.ROIC), "")
	add(SectionOperating, "Operating margin", Percent(op.OperatingMargin), "")

	// 5. Growth
	g := rep.Growth
	add(SectionGrowth, "Change in invested capital", Money(g.ChangeInInvestedCapital), "")
	add(SectionGrowth, "Reinvestment rate", Percent(g.ReinvestmentRate), "")
	add(SectionGrowth, "Sustainable growth", Percent(g.GrowthRate), "")

	// 6. Valuation
	v := rep.Valuation
	add(SectionValuation, "Value (no growth)", MoneyEstimate(v.NoGrowth), "")
	add(SectionValuation, "Value (with growth)", MoneyEstimate(v.WithGrowth), divergentNote(v.WithGrowth))
	add(SectionValuation, "Market capitalization", MoneyEstimate(v.MarketCap), sourceNote(rep.Sources.MarketCap))
	add(SectionValuation, "Market cap less value", MoneyEstimate(v.Variance), "")

	// 7. Enterprise bridge
	e := rep.Enterprise
	add(SectionEnterprise, "Net operating assets", Money(e.NetOperatingAssets), "")
	add(SectionEnterprise, "PVGO", MoneyEstimate(e.PVGO), "")
	add(SectionEnterprise, "Reconstructed assets", MoneyEstimate(e.ReconstructedAssets), "")
	add(SectionEnterprise, "Reconstructed EV", Money(e.ReconstructedEV), "")
	add(SectionEnterprise, "Market EV", MoneyEstimate(e.MarketEV), "")
	add(SectionEnterprise, "Market less reconstructed EV", MoneyEstimate(e.Difference), "")

	return rows
}

// WorkingCapitalRows formats the working-capital periods, pairing each with
// its overlay reading when one is given for the same period.
func WorkingCapitalRows(periods []valuation.WorkingCapitalMetrics, overlay []valuation.OverlayPoint) []WorkingCapitalRow {
	byPeriod := make(map[string]valuation.Estimate, len(overlay))
	for _, pt := range overlay {
		byPeriod[string(pt.Period)] = pt.Value
	}

	out := make([]WorkingCapitalRow, len(periods))
	for i, m := range periods {
		out[i] = WorkingCapitalRow{
			Period:            string(m.Period),
			DaysInventory:     DaysEstimate(m.DaysInventory),
			DaysSales:         DaysEstimate(m.DaysSales),
			DaysPayable:       DaysEstimate(m.DaysPayable),
			CashConversion:    Days(m.CashConversionCycle),
			NetWorkingCapital: Money(m.NetWorkingCapital),
			ChangeInNWC:       MoneyEstimate(m.ChangeInNWC),
		}
		if len(overlay) > 0 {
			out[i].Overlay = NotAvailable
			if v, ok := byPeriod[string(m.Period)]; ok && v.Computable {
				out[i].Overlay = Ratio(v.Value)
			}
		}
	}
	return out
}

func sourceNote(s pipeline.Source) string {
	if s == pipeline.SourceProvider {
		return ""
	}
	return string(s)
}

func riskFreeNote(s pipeline.Sources) string {
	if s.RiskFreeRate == pipeline.SourceProvider && s.RiskFreeProvider != "" {
		return s.RiskFreeProvider
	}
	return sourceNote(s.RiskFreeRate)
}

func divergentNote(e valuation.Estimate) string {
	if e.Computable {
		return ""
	}
	return "growth at or above WACC"
}
