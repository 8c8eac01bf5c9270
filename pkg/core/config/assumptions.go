package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"valuation_dashboard/pkg/core/valuation"
)

// Assumptions are the financial parameters and convention choices for a run.
// They are passed explicitly to the pipeline; nothing reads them from globals.
type Assumptions struct {
	MarketRiskPremium   float64 `yaml:"market_risk_premium" json:"market_risk_premium" validate:"gte=0,lte=0.25"`
	CreditSpread        float64 `yaml:"credit_spread" json:"credit_spread" validate:"gte=0,lte=0.25"`
	DefaultRiskFreeRate float64 `yaml:"default_risk_free_rate" json:"default_risk_free_rate" validate:"gte=0,lte=0.25"`
	DefaultBeta         float64 `yaml:"default_beta" json:"default_beta" validate:"gt=0,lte=5"`
	FallbackTaxRate     float64 `yaml:"fallback_tax_rate" json:"fallback_tax_rate" validate:"gte=0,lt=1"`

	// Optional overrides. Nil uses the effective tax rate and the observed D/E.
	MarginalTaxRate    *float64 `yaml:"marginal_tax_rate,omitempty" json:"marginal_tax_rate,omitempty" validate:"omitempty,gte=0,lt=1"`
	TargetDebtToEquity *float64 `yaml:"target_debt_to_equity,omitempty" json:"target_debt_to_equity,omitempty" validate:"omitempty,gte=0"`

	WorkingCapitalWindow int `yaml:"working_capital_window" json:"working_capital_window" validate:"oneof=3 5"`

	Conventions valuation.Conventions `yaml:"conventions" json:"conventions"`
	Forecast    ForecastDefaults      `yaml:"forecast" json:"forecast"`
}

// ForecastDefaults seed the forecast when the caller does not override them.
type ForecastDefaults struct {
	Horizon              int     `yaml:"horizon" json:"horizon" validate:"gte=0,lte=50"`
	ReinvestmentFraction float64 `yaml:"reinvestment_fraction" json:"reinvestment_fraction" validate:"gte=0,lte=1"`
	// Nil uses the run's sustainable growth rate.
	GrowthRate *float64 `yaml:"growth_rate,omitempty" json:"growth_rate,omitempty" validate:"omitempty,gt=-1,lt=1"`
}

// DefaultAssumptions: 5.5% MRP, 150bp spread, 4% fallback risk-free, beta 1.0, 21% tax.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		MarketRiskPremium:    0.055,
		CreditSpread:         0.015,
		DefaultRiskFreeRate:  0.04,
		DefaultBeta:          1.0,
		FallbackTaxRate:      valuation.DefaultFallbackTaxRate,
		WorkingCapitalWindow: 3,
		Conventions:          valuation.DefaultConventions(),
		Forecast: ForecastDefaults{
			Horizon:              5,
			ReinvestmentFraction: 0.3,
		},
	}
}

var validate = validator.New()

// Validate checks ranges and convention enums.
func (a Assumptions) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid assumptions: %w", err)
	}
	return nil
}

// ParseAssumptions overlays YAML onto the defaults; keys absent from the
// document keep their default values.
func ParseAssumptions(data []byte) (Assumptions, error) {
	a := DefaultAssumptions()
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Assumptions{}, fmt.Errorf("parse assumptions: %w", err)
	}
	if err := a.Validate(); err != nil {
		return Assumptions{}, err
	}
	return a, nil
}

// LoadAssumptions reads the YAML file at path. A missing file yields the defaults.
func LoadAssumptions(path string) (Assumptions, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultAssumptions(), nil
	}
	if err != nil {
		return Assumptions{}, fmt.Errorf("read assumptions %s: %w", path, err)
	}
	return ParseAssumptions(data)
}
