package valuation

import (
	"math"

	"valuation_dashboard/pkg/core/statement"
)

// EnterpriseView reconciles the book capital base against market enterprise value.
type EnterpriseView struct {
	NetOperatingAssets  float64  `json:"net_operating_assets"`
	PVGO                Estimate `json:"pvgo"`
	ReconstructedAssets Estimate `json:"reconstructed_assets"`          // NOA + PVGO
	ReconstructedEV     float64  `json:"reconstructed_enterprise_value"` // Debt + Equity
	MarketEV            Estimate `json:"market_enterprise_value"`        // Market Cap + Debt - Cash
	Difference          Estimate `json:"difference"`                     // Market EV - Reconstructed EV
	Cash                float64  `json:"cash_and_short_term_investments"`
}

// PresentValue discounts cash flows received at the end of periods 1..n.
func PresentValue(cashflows []float64, rate float64) Estimate {
	if rate <= -1 {
		return NotComputable
	}
	var pv float64
	for i, cf := range cashflows {
		pv += cf / math.Pow(1+rate, float64(i+1))
	}
	return Computed(pv)
}

// NetOperatingAssets = (Total Assets - Cash - ST Investments) - (Total Liabilities - Total Debt)
func NetOperatingAssets(totalAssets, cash, stInvest, totalLiabs, totalDebt float64) float64 {
	operatingAssets := totalAssets - cash - stInvest
	operatingLiabs := totalLiabs - totalDebt
	return operatingAssets - operatingLiabs
}

// BuildEnterpriseView derives NOA from the balance sheet and compares the
// reconstructed capital base with the market. PVGO is the market value in
// excess of the no-growth perpetuity.
func BuildEnterpriseView(bs *statement.Table, period statement.Period, cs CapitalStructure, noGrowth, marketCap Estimate) EnterpriseView {
	cash := bs.Get(statement.CashAndCashEquivalents, period)
	stInvest := bs.Get(statement.OtherShortTermInvestments, period)

	v := EnterpriseView{
		NetOperatingAssets: NetOperatingAssets(
			bs.Get(statement.TotalAssets, period),
			cash,
			stInvest,
			bs.Get(statement.TotalLiabilities, period),
			cs.TotalDebt,
		),
		ReconstructedEV: cs.TotalDebt + cs.TotalEquity,
		Cash:            cash + stInvest,
	}

	if marketCap.Computable {
		v.MarketEV = Computed(marketCap.Value + cs.TotalDebt - v.Cash)
		v.Difference = Computed(v.MarketEV.Value - v.ReconstructedEV)
		if noGrowth.Computable {
			v.PVGO = Computed(marketCap.Value - noGrowth.Value)
			v.ReconstructedAssets = Computed(v.NetOperatingAssets + v.PVGO.Value)
		}
	}
	return v
}
