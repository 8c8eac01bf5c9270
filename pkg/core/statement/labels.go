// Package statement holds the financial-statement tables consumed by the
// valuation pipeline and the accessors used to read line items out of them.
package statement

import (
	"strings"
	"unicode"
)

// Kind identifies which of the three statements a table (or label) belongs to.
type Kind string

const (
	IncomeStatement Kind = "income_statement"
	BalanceSheet    Kind = "balance_sheet"
	CashFlow        Kind = "cash_flow"
)

// Label is a recognised line item. Lookups are exact-match on the label.
type Label string

// =============================================================================
// RECOGNISED LINE ITEMS
// =============================================================================

const (
	// Income statement
	TotalRevenue                      Label = "Total Revenue"
	CostOfRevenue                     Label = "Cost Of Revenue"
	GrossProfit                       Label = "Gross Profit"
	PretaxIncome                      Label = "Pretax Income"
	TaxProvision                      Label = "Tax Provision"
	EBIT                              Label = "EBIT"
	EBITDA                            Label = "EBITDA"
	ReconciledDepreciation            Label = "Reconciled Depreciation"
	DepreciationAmortizationDepletion Label = "Depreciation Amortization Depletion"

	// Cash flow
	CapitalExpenditure     Label = "Capital Expenditure"
	NetPPEPurchaseAndSale  Label = "Net PPE Purchase And Sale"
	ChangeInWorkingCapital Label = "Change In Working Capital"

	// Balance sheet
	LongTermDebt                     Label = "Long Term Debt"
	CurrentDebt                      Label = "Current Debt"
	ShortTermDebt                    Label = "Short Term Debt"
	TotalEquityGrossMinorityInterest Label = "Total Equity Gross Minority Interest"
	InvestedCapital                  Label = "Invested Capital"
	Inventory                        Label = "Inventory"
	AccountsReceivable               Label = "Accounts Receivable"
	AccountsPayable                  Label = "Accounts Payable"
	TotalAssets                      Label = "Total Assets"
	TotalLiabilities                 Label = "Total Liabilities Net Minority Interest"
	CashAndCashEquivalents           Label = "Cash And Cash Equivalents"
	OtherShortTermInvestments        Label = "Other Short Term Investments"
)

// labelKinds is the closed set of labels the pipeline understands, with the
// statement each one is read from.
var labelKinds = map[Label]Kind{
	TotalRevenue:                      IncomeStatement,
	CostOfRevenue:                     IncomeStatement,
	GrossProfit:                       IncomeStatement,
	PretaxIncome:                      IncomeStatement,
	TaxProvision:                      IncomeStatement,
	EBIT:                              IncomeStatement,
	EBITDA:                            IncomeStatement,
	ReconciledDepreciation:            IncomeStatement,
	DepreciationAmortizationDepletion: CashFlow,

	CapitalExpenditure:     CashFlow,
	NetPPEPurchaseAndSale:  CashFlow,
	ChangeInWorkingCapital: CashFlow,

	LongTermDebt:                     BalanceSheet,
	CurrentDebt:                      BalanceSheet,
	ShortTermDebt:                    BalanceSheet,
	TotalEquityGrossMinorityInterest: BalanceSheet,
	InvestedCapital:                  BalanceSheet,
	Inventory:                        BalanceSheet,
	AccountsReceivable:               BalanceSheet,
	AccountsPayable:                  BalanceSheet,
	TotalAssets:                      BalanceSheet,
	TotalLiabilities:                 BalanceSheet,
	CashAndCashEquivalents:           BalanceSheet,
	OtherShortTermInvestments:        BalanceSheet,
}

// legacyAliases maps spellings seen in older data dumps onto the canonical label.
var legacyAliases = map[string]Label{
	"netppe":                   NetPPEPurchaseAndSale,
	"depreciationamortization": DepreciationAmortizationDepletion,
	"totalequity":              TotalEquityGrossMinorityInterest,
}

var compactIndex = func() map[string]Label {
	idx := make(map[string]Label, len(labelKinds)+len(legacyAliases))
	for l := range labelKinds {
		idx[compact(string(l))] = l
	}
	for k, l := range legacyAliases {
		idx[k] = l
	}
	return idx
}()

// ParseLabel resolves a provider string onto a recognised label. It accepts
// the spaced form ("Total Revenue"), the provider camel-case form
// ("TotalRevenue") and a few legacy aliases. ok is false for anything else.
func ParseLabel(raw string) (Label, bool) {
	l, ok := compactIndex[compact(raw)]
	return l, ok
}

// KindOf reports which statement a label is read from.
func KindOf(l Label) (Kind, bool) {
	k, ok := labelKinds[l]
	return k, ok
}

// ProviderKey is the compact camel-case key providers use for the label,
// e.g. "TotalEquityGrossMinorityInterest".
func (l Label) ProviderKey() string {
	return strings.ReplaceAll(string(l), " ", "")
}

// AllLabels returns the whole recognised set.
func AllLabels() []Label {
	out := make([]Label, 0, len(labelKinds))
	for l := range labelKinds {
		out = append(out, l)
	}
	return out
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
