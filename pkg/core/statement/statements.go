package statement

import (
	"errors"
	"fmt"
)

// ErrEmptyStatement is returned when a whole statement table is missing for a
// subject. The pipeline stops rather than reporting all-zero metrics.
var ErrEmptyStatement = errors.New("no data available")

// EmptyStatementError names the statement that came back empty.
type EmptyStatementError struct {
	Ticker string
	Kind   Kind
}

func (e *EmptyStatementError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Ticker, e.Kind, ErrEmptyStatement)
}

func (e *EmptyStatementError) Unwrap() error { return ErrEmptyStatement }

// Statements bundles the three tables of one subject.
type Statements struct {
	Ticker   string `json:"ticker"`
	Income   *Table `json:"income"`
	Balance  *Table `json:"balance"`
	CashFlow *Table `json:"cash_flow"`
}

// NewStatements returns an empty bundle with all three tables allocated.
func NewStatements(ticker string) Statements {
	return Statements{
		Ticker:   ticker,
		Income:   NewTable(IncomeStatement),
		Balance:  NewTable(BalanceSheet),
		CashFlow: NewTable(CashFlow),
	}
}

// Table returns the table of the given kind.
func (s Statements) Table(kind Kind) *Table {
	switch kind {
	case IncomeStatement:
		return s.Income
	case BalanceSheet:
		return s.Balance
	case CashFlow:
		return s.CashFlow
	}
	return nil
}

// Set routes a value into the table that owns the label. Unrecognised labels
// are rejected and reported with ok=false.
func (s Statements) Set(label Label, period Period, value float64) bool {
	kind, ok := KindOf(label)
	if !ok {
		return false
	}
	t := s.Table(kind)
	if t == nil {
		return false
	}
	t.Set(label, period, value)
	return true
}

// Validate fails when any of the three tables is empty.
func (s Statements) Validate() error {
	for _, kind := range []Kind{IncomeStatement, BalanceSheet, CashFlow} {
		if s.Table(kind).IsEmpty() {
			return &EmptyStatementError{Ticker: s.Ticker, Kind: kind}
		}
	}
	return nil
}

// LatestPeriod is the most recent balance-sheet period, falling back to the
// income statement when the balance sheet has none.
func (s Statements) LatestPeriod() (Period, bool) {
	if p, ok := s.Balance.Latest(); ok {
		return p, true
	}
	return s.Income.Latest()
}

// Info is the subject "info" bag from the market-data provider. Pointer
// fields are nil when the provider did not report them.
type Info struct {
	Ticker            string   `json:"ticker"`
	Name              string   `json:"name,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	Beta              *float64 `json:"beta,omitempty"`
	MarketCap         *float64 `json:"market_cap,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	Price             *float64 `json:"price,omitempty"`
}
