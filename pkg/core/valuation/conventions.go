package valuation

// The source data does not settle several finance conventions, so each one is
// an explicit, swappable choice recorded alongside the results.

// NOPATBasis selects the operating profit the tax shield is applied to.
type NOPATBasis string

const (
	// BasisEBIT taxes operating profit before financing effects.
	BasisEBIT NOPATBasis = "ebit"
	// BasisPretaxIncome taxes income after interest. Mixing this with a WACC
	// that already prices debt counts leverage twice.
	BasisPretaxIncome NOPATBasis = "pretax_income"
)

// CapexSign selects how the reported capital expenditure enters FCF.
type CapexSign string

const (
	// CapexMagnitude subtracts |capex|; providers report capex as a negative outflow.
	CapexMagnitude CapexSign = "magnitude"
	// CapexAsReported subtracts the signed figure as the provider reports it.
	CapexAsReported CapexSign = "as_reported"
)

// CostOfCapitalModel selects how ke and kd are built. One model per run.
type CostOfCapitalModel string

const (
	// ModelSimple: ke = rf + beta*mrp, kd = rf + spread.
	ModelSimple CostOfCapitalModel = "simple"
	// ModelRelevered unlevers the observed beta (Hamada) and prices debt with a debt beta.
	ModelRelevered CostOfCapitalModel = "relevered"
)

// InvestedCapitalSource selects where invested capital comes from.
type InvestedCapitalSource string

const (
	// SourcePreferReported uses the reported "Invested Capital" line when present.
	SourcePreferReported InvestedCapitalSource = "prefer_reported"
	// SourceDerived always uses debt + equity.
	SourceDerived InvestedCapitalSource = "derived"
	// SourceReported marks a result that used the reported line.
	SourceReported InvestedCapitalSource = "reported"
)

// Conventions is the set of convention choices for one run.
type Conventions struct {
	NOPATBasis         NOPATBasis            `yaml:"nopat_basis" json:"nopat_basis" validate:"oneof=ebit pretax_income"`
	CapexSign          CapexSign             `yaml:"capex_sign" json:"capex_sign" validate:"oneof=magnitude as_reported"`
	CostOfCapitalModel CostOfCapitalModel    `yaml:"cost_of_capital_model" json:"cost_of_capital_model" validate:"oneof=simple relevered"`
	InvestedCapital    InvestedCapitalSource `yaml:"invested_capital" json:"invested_capital" validate:"oneof=prefer_reported derived"`
}

// DefaultConventions: EBIT basis, capex magnitude, simple cost of capital,
// reported invested capital when available.
func DefaultConventions() Conventions {
	return Conventions{
		NOPATBasis:         BasisEBIT,
		CapexSign:          CapexMagnitude,
		CostOfCapitalModel: ModelSimple,
		InvestedCapital:    SourcePreferReported,
	}
}
