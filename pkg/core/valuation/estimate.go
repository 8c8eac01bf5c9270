package valuation

import (
	"encoding/json"
	"math"
	"strconv"
)

// Estimate is a derived figure that is either a finite number or explicitly
// not computable (divergent perpetuity, zero denominator, missing market data).
// The zero value is NotComputable.
type Estimate struct {
	Value      float64
	Computable bool
}

// NotComputable is the sentinel the display layer renders distinctly from a number.
var NotComputable = Estimate{}

// Computed wraps v. NaN and infinities collapse to NotComputable so they can
// never leak into the output.
func Computed(v float64) Estimate {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotComputable
	}
	return Estimate{Value: v, Computable: true}
}

// Ptr converts an optional provider value.
func Ptr(v *float64) Estimate {
	if v == nil {
		return NotComputable
	}
	return Computed(*v)
}

// OrZero returns the value, or 0 when not computable.
func (e Estimate) OrZero() float64 {
	if !e.Computable {
		return 0
	}
	return e.Value
}

func (e Estimate) String() string {
	if !e.Computable {
		return "n/a"
	}
	return strconv.FormatFloat(e.Value, 'f', -1, 64)
}

// MarshalJSON writes null for NotComputable.
func (e Estimate) MarshalJSON() ([]byte, error) {
	if !e.Computable {
		return []byte("null"), nil
	}
	return json.Marshal(e.Value)
}

// UnmarshalJSON reads a number or null.
func (e *Estimate) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = Ptr(v)
	return nil
}

// divide returns n/d, NotComputable when d is 0.
func divide(n, d float64) Estimate {
	if d == 0 {
		return NotComputable
	}
	return Computed(n / d)
}

// safeDiv returns n/d, 0 when d is 0.
func safeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	v := n / d
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
