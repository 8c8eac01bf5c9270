package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"valuation_dashboard/pkg/core/statement"
)

func TestEffectiveTaxRate(t *testing.T) {
	rate, fallback := EffectiveTaxRate(29749, 123485, DefaultFallbackTaxRate)
	assert.False(t, fallback)
	assert.InDelta(t, 29749.0/123485.0, rate, 1e-12)

	rate, fallback = EffectiveTaxRate(500, 0, DefaultFallbackTaxRate)
	assert.True(t, fallback)
	assert.Equal(t, 0.21, rate)
}

func TestZeroPretaxIncomeKeepsNOPATFinite(t *testing.T) {
	for _, ebit := range []float64{0, 1000, -250, 1e12} {
		in := OperatingInputs{EBIT: ebit, PretaxIncome: 0, TaxProvision: 12}
		op := CalculateOperating(in, 5000, DefaultFallbackTaxRate, DefaultConventions())
		assert.Equal(t, 0.21, op.EffectiveTaxRate)
		assert.True(t, op.TaxRateIsFallback)
		assert.False(t, math.IsNaN(op.NOPAT) || math.IsInf(op.NOPAT, 0))
		assert.InDelta(t, ebit*0.79, op.NOPAT, 1e-6)
	}
}

func TestNOPATBasis(t *testing.T) {
	in := OperatingInputs{EBIT: 1000, PretaxIncome: 800}
	assert.InDelta(t, 750.0, NOPAT(in, 0.25, BasisEBIT), 1e-12)
	assert.InDelta(t, 600.0, NOPAT(in, 0.25, BasisPretaxIncome), 1e-12)
}

func TestFreeCashFlowCapexConvention(t *testing.T) {
	in := OperatingInputs{DepreciationAmort: 200, CapitalExpenditure: -300, ChangeInWorkingCapital: 50}

	// 1000 + 200 - 300 - 50
	assert.InDelta(t, 850.0, FreeCashFlow(1000, in, CapexMagnitude), 1e-12)
	// raw negative capex is subtracted as-is: 1000 + 200 + 300 - 50
	assert.InDelta(t, 1450.0, FreeCashFlow(1000, in, CapexAsReported), 1e-12)

	in.CapitalExpenditure = 300
	assert.InDelta(t, 850.0, FreeCashFlow(1000, in, CapexMagnitude), 1e-12)
}

func TestROICZeroInvestedCapital(t *testing.T) {
	assert.Equal(t, 0.0, ROIC(1000, 0))
	assert.InDelta(t, 0.1, ROIC(1000, 10000), 1e-12)
}

func TestReadOperatingInputsFallbacks(t *testing.T) {
	const p = statement.Period("2024-09-28")
	s := statement.NewStatements("AAPL")
	s.Income.Set(statement.EBIT, p, 123216)
	s.Income.Set(statement.PretaxIncome, p, 123485)
	s.Income.Set(statement.TaxProvision, p, 29749)
	s.CashFlow.Set(statement.DepreciationAmortizationDepletion, p, 11445)
	s.CashFlow.Set(statement.NetPPEPurchaseAndSale, p, -9447)
	s.CashFlow.Set(statement.ChangeInWorkingCapital, p, 3651)

	in := ReadOperatingInputs(s, p)
	assert.Equal(t, 11445.0, in.DepreciationAmort)
	assert.Equal(t, -9447.0, in.CapitalExpenditure)
	assert.Equal(t, 3651.0, in.ChangeInWorkingCapital)

	s.Income.Set(statement.ReconciledDepreciation, p, 11400)
	s.CashFlow.Set(statement.CapitalExpenditure, p, -9959)
	in = ReadOperatingInputs(s, p)
	assert.Equal(t, 11400.0, in.DepreciationAmort)
	assert.Equal(t, -9959.0, in.CapitalExpenditure)
}
