package valuation

// CostOfCapitalInputs parameters for calculating Cost of Capital
type CostOfCapitalInputs struct {
	RiskFreeRate      float64 `json:"risk_free_rate"`
	EquityBeta        float64 `json:"equity_beta"`
	MarketRiskPremium float64 `json:"market_risk_premium"`
	CreditSpread      float64 `json:"credit_spread"`
	TaxRate           float64 `json:"tax_rate"`

	// Target leverage (D/E) for re-levering the asset beta. Nil re-levers at
	// the observed book D/E. Only read by ModelRelevered.
	TargetDebtToEquity *float64 `json:"target_debt_to_equity,omitempty"`
}

// CostOfCapital holds the calculated rates
type CostOfCapital struct {
	Model            CostOfCapitalModel `json:"model"`
	CostOfEquity     float64            `json:"cost_of_equity"`
	CostOfDebt       float64            `json:"cost_of_debt"` // Pre-tax
	AfterTaxCostDebt float64            `json:"after_tax_cost_of_debt"`
	WACC             float64            `json:"wacc"`
	WeightDebt       float64            `json:"weight_debt"`
	WeightEquity     float64            `json:"weight_equity"`

	// Populated by ModelRelevered only
	AssetBeta   float64 `json:"asset_beta,omitempty"`
	DebtBeta    float64 `json:"debt_beta,omitempty"`
	LeveredBeta float64 `json:"levered_beta,omitempty"`
}

// CalculateCostOfCapital computes ke, kd and WACC for the capital structure
// using the given model. The two models are never blended.
func CalculateCostOfCapital(in CostOfCapitalInputs, cs CapitalStructure, model CostOfCapitalModel) CostOfCapital {
	if model == ModelRelevered {
		return calculateRelevered(in, cs)
	}

	// Ke = Rf + Beta * ERP
	ke := in.RiskFreeRate + in.EquityBeta*in.MarketRiskPremium
	// Kd = Rf + Spread
	kd := in.RiskFreeRate + in.CreditSpread

	return CostOfCapital{
		Model:            ModelSimple,
		CostOfEquity:     ke,
		CostOfDebt:       kd,
		AfterTaxCostDebt: kd * (1 - in.TaxRate),
		WACC:             WACC(cs.EquityWeight, cs.DebtWeight, ke, kd, in.TaxRate),
		WeightDebt:       cs.DebtWeight,
		WeightEquity:     cs.EquityWeight,
	}
}

func calculateRelevered(in CostOfCapitalInputs, cs CapitalStructure) CostOfCapital {
	// 1. Debt beta implied by the spread
	debtBeta := safeDiv(in.CreditSpread, in.MarketRiskPremium)

	// 2. Unlever observed beta (Hamada)
	// BetaA = BetaE / (1 + (1-t)*(D/E)), 0 when E <= 0
	assetBeta := AssetBeta(in.EquityBeta, cs.TotalDebt, cs.TotalEquity, in.TaxRate)

	// 3. Re-lever at target D/E
	de := cs.DebtToEquity()
	wd, we := cs.DebtWeight, cs.EquityWeight
	if in.TargetDebtToEquity != nil {
		// D/E = x -> Wd = x/(1+x), We = 1/(1+x)
		de = *in.TargetDebtToEquity
		wd = de / (1 + de)
		we = 1.0 / (1 + de)
	}
	leveredBeta := assetBeta * (1 + (1-in.TaxRate)*de)

	ke := in.RiskFreeRate + leveredBeta*in.MarketRiskPremium
	kd := in.RiskFreeRate + debtBeta*in.MarketRiskPremium

	return CostOfCapital{
		Model:            ModelRelevered,
		CostOfEquity:     ke,
		CostOfDebt:       kd,
		AfterTaxCostDebt: kd * (1 - in.TaxRate),
		WACC:             WACC(we, wd, ke, kd, in.TaxRate),
		WeightDebt:       wd,
		WeightEquity:     we,
		AssetBeta:        assetBeta,
		DebtBeta:         debtBeta,
		LeveredBeta:      leveredBeta,
	}
}

// AssetBeta unlevers an equity beta with the Hamada relation.
func AssetBeta(equityBeta, debt, equity, taxRate float64) float64 {
	if equity <= 0 {
		return 0
	}
	return equityBeta / (1 + (1-taxRate)*(debt/equity))
}

// WACC = We*Ke + Wd*Kd*(1-t)
func WACC(equityWeight, debtWeight, costOfEquity, costOfDebt, taxRate float64) float64 {
	return equityWeight*costOfEquity + debtWeight*costOfDebt*(1-taxRate)
}
