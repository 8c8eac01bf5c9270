package statement

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissingResolvesToZero(t *testing.T) {
	bs := NewTable(BalanceSheet)
	bs.Set(LongTermDebt, "2024-09-28", 85750)

	assert.Equal(t, 85750.0, bs.Get(LongTermDebt, "2024-09-28"))
	assert.Equal(t, 0.0, bs.Get(Inventory, "2024-09-28"), "absent row")
	assert.Equal(t, 0.0, bs.Get(LongTermDebt, "2020-09-26"), "absent column")
	assert.Equal(t, 0.0, bs.Get(Label("Net PPE"), "2024-09-28"), "unknown label")

	var nilTable *Table
	assert.Equal(t, 0.0, nilTable.Get(LongTermDebt, "2024-09-28"))
	assert.Equal(t, 0.0, nilTable.GetLatest(LongTermDebt))
}

func TestPeriodsAreDescending(t *testing.T) {
	is := NewTable(IncomeStatement)
	is.Set(TotalRevenue, "2022-09-24", 394328)
	is.Set(TotalRevenue, "2024-09-28", 391035)
	is.Set(EBIT, "2023-09-30", 114301)
	is.Set(TotalRevenue, "2023-09-30", 383285)

	assert.Equal(t, []Period{"2024-09-28", "2023-09-30", "2022-09-24"}, is.Periods())

	latest, ok := is.Latest()
	require.True(t, ok)
	assert.Equal(t, Period("2024-09-28"), latest)
	assert.Equal(t, 391035.0, is.GetLatest(TotalRevenue))
	assert.Equal(t, 0.0, is.GetLatest(EBIT), "EBIT not reported for the latest period")
}

func TestNaNIsTreatedAsAbsent(t *testing.T) {
	cf := NewTable(CashFlow)
	cf.Set(CapitalExpenditure, "2024-09-28", math.NaN())
	cf.Set(CapitalExpenditure, "2023-09-30", math.Inf(-1))

	assert.True(t, cf.IsEmpty())
	_, ok := cf.Lookup(CapitalExpenditure, "2024-09-28")
	assert.False(t, ok)
}

func TestFirstOfFollowsChain(t *testing.T) {
	cf := NewTable(CashFlow)
	cf.Set(NetPPEPurchaseAndSale, "2024-09-28", -9447)

	v, ok := cf.FirstOf("2024-09-28", CapitalExpenditure, NetPPEPurchaseAndSale)
	require.True(t, ok)
	assert.Equal(t, -9447.0, v)

	cf.Set(CapitalExpenditure, "2024-09-28", -9959)
	v, _ = cf.FirstOf("2024-09-28", CapitalExpenditure, NetPPEPurchaseAndSale)
	assert.Equal(t, -9959.0, v)

	_, ok = cf.FirstOf("2023-09-30", CapitalExpenditure, NetPPEPurchaseAndSale)
	assert.False(t, ok)
}

func TestValidateReportsEmptyTable(t *testing.T) {
	s := NewStatements("JPM")
	s.Set(TotalRevenue, "2024-12-31", 177556)
	s.Set(LongTermDebt, "2024-12-31", 400000)

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyStatement))

	var empty *EmptyStatementError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, CashFlow, empty.Kind)

	s.Set(ChangeInWorkingCapital, "2024-12-31", 120)
	assert.NoError(t, s.Validate())
}

func TestStatementsSetRoutesByLabel(t *testing.T) {
	s := NewStatements("AAPL")
	assert.True(t, s.Set(Inventory, "2024-09-28", 7286))
	assert.False(t, s.Set(Label("Goodwill And Other Intangibles"), "2024-09-28", 1))

	assert.Equal(t, 7286.0, s.Balance.Get(Inventory, "2024-09-28"))
	assert.True(t, s.Income.IsEmpty())
}

func TestTableIgnoresLabelsOfOtherStatements(t *testing.T) {
	bs := NewTable(BalanceSheet)
	bs.Set(TotalRevenue, "2024-09-28", 391035)
	bs.Set(Label("Goodwill"), "2024-09-28", 1)
	assert.True(t, bs.IsEmpty())

	bs.Set(Inventory, "2024-09-28", 7286)
	assert.Equal(t, 7286.0, bs.GetLatest(Inventory))
	assert.Equal(t, 0.0, bs.GetLatest(TotalRevenue))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-09-28")
	require.NoError(t, err)
	assert.Equal(t, Period("2024-09-28"), p)
	assert.Equal(t, 2024, p.Time().Year())

	_, err = ParsePeriod("FY2024")
	assert.Error(t, err)
}
