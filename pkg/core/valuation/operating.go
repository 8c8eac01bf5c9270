package valuation

import (
	"math"

	"valuation_dashboard/pkg/core/statement"
)

// DefaultFallbackTaxRate is the US statutory corporate rate, used when pretax
// income is zero or absent so NOPAT stays computable.
const DefaultFallbackTaxRate = 0.21

// OperatingInputs are the raw figures of one period feeding NOPAT and FCF.
type OperatingInputs struct {
	EBIT                   float64 `json:"ebit"`
	PretaxIncome           float64 `json:"pretax_income"`
	TaxProvision           float64 `json:"tax_provision"`
	DepreciationAmort      float64 `json:"depreciation_amortization"`
	CapitalExpenditure     float64 `json:"capital_expenditure"` // as reported (usually negative)
	ChangeInWorkingCapital float64 `json:"change_in_working_capital"`
	Revenue                float64 `json:"revenue"`
	EBITDA                 float64 `json:"ebitda"`
}

// ReadOperatingInputs pulls the operating line items for the period.
// Depreciation prefers the income-statement reconciled figure, then the
// cash-flow D&A line. Capex prefers "Capital Expenditure", then net PP&E purchases.
func ReadOperatingInputs(s statement.Statements, period statement.Period) OperatingInputs {
	da, ok := s.Income.Lookup(statement.ReconciledDepreciation, period)
	if !ok {
		da = s.CashFlow.Get(statement.DepreciationAmortizationDepletion, period)
	}
	capex, _ := s.CashFlow.FirstOf(period, statement.CapitalExpenditure, statement.NetPPEPurchaseAndSale)

	return OperatingInputs{
		EBIT:                   s.Income.Get(statement.EBIT, period),
		PretaxIncome:           s.Income.Get(statement.PretaxIncome, period),
		TaxProvision:           s.Income.Get(statement.TaxProvision, period),
		DepreciationAmort:      da,
		CapitalExpenditure:     capex,
		ChangeInWorkingCapital: s.CashFlow.Get(statement.ChangeInWorkingCapital, period),
		Revenue:                s.Income.Get(statement.TotalRevenue, period),
		EBITDA:                 s.Income.Get(statement.EBITDA, period),
	}
}

// OperatingPerformance holds the derived operating metrics
type OperatingPerformance struct {
	EffectiveTaxRate  float64    `json:"effective_tax_rate"`
	TaxRateIsFallback bool       `json:"tax_rate_is_fallback"`
	Basis             NOPATBasis `json:"nopat_basis"`
	NOPAT             float64    `json:"nopat"`
	CapexMagnitude    float64    `json:"capex_magnitude"`
	FreeCashFlow      float64    `json:"free_cash_flow"`
	ROIC              float64    `json:"roic"`
	OperatingMargin   float64    `json:"operating_margin"`
}

// EffectiveTaxRate = Tax Provision / Pretax Income, falling back when pretax
// income is zero.
func EffectiveTaxRate(taxProvision, pretaxIncome, fallback float64) (rate float64, usedFallback bool) {
	if pretaxIncome == 0 {
		return fallback, true
	}
	return taxProvision / pretaxIncome, false
}

// NOPAT = basis * (1 - t)
func NOPAT(in OperatingInputs, taxRate float64, basis NOPATBasis) float64 {
	profit := in.EBIT
	if basis == BasisPretaxIncome {
		profit = in.PretaxIncome
	}
	return profit * (1 - taxRate)
}

// FreeCashFlow = NOPAT + D&A - Capex - ΔWC
func FreeCashFlow(nopat float64, in OperatingInputs, sign CapexSign) float64 {
	capex := math.Abs(in.CapitalExpenditure)
	if sign == CapexAsReported {
		capex = in.CapitalExpenditure
	}
	return nopat + in.DepreciationAmort - capex - in.ChangeInWorkingCapital
}

// ROIC = NOPAT / Invested Capital, 0 when invested capital is 0
func ROIC(nopat, investedCapital float64) float64 {
	return safeDiv(nopat, investedCapital)
}

// CalculateOperating derives tax rate, NOPAT, FCF and ROIC.
func CalculateOperating(in OperatingInputs, investedCapital, fallbackTaxRate float64, conv Conventions) OperatingPerformance {
	rate, fallback := EffectiveTaxRate(in.TaxProvision, in.PretaxIncome, fallbackTaxRate)
	nopat := NOPAT(in, rate, conv.NOPATBasis)

	return OperatingPerformance{
		EffectiveTaxRate:  rate,
		TaxRateIsFallback: fallback,
		Basis:             conv.NOPATBasis,
		NOPAT:             nopat,
		CapexMagnitude:    math.Abs(in.CapitalExpenditure),
		FreeCashFlow:      FreeCashFlow(nopat, in, conv.CapexSign),
		ROIC:              ROIC(nopat, investedCapital),
		OperatingMargin:   safeDiv(in.EBIT, in.Revenue),
	}
}
