// Package odds provides conversions between American odds, decimal odds,
// and implied probability.
package odds

import (
	"fmt"
	"math"
)

// InvalidOddsError represents malformed input odds or probability
type InvalidOddsError struct {
	Value  float64
	Reason string
}

func (e *InvalidOddsError) Error() string {
	return fmt.Sprintf("invalid odds: %s (value: %g)", e.Reason, e.Value)
}

// NewInvalidOddsError creates a new invalid odds error
func NewInvalidOddsError(value float64, reason string) *InvalidOddsError {
	return &InvalidOddsError{Value: value, Reason: reason}
}

// AmericanToDecimal converts American odds to decimal odds.
// Positive odds: d = 1 + odds/100. Negative odds: d = 1 + 100/|odds|.
func AmericanToDecimal(american float64) (float64, error) {
	if american == 0 || math.IsNaN(american) || math.IsInf(american, 0) {
		return 0, NewInvalidOddsError(american, "american odds must be nonzero and finite")
	}
	if american > 0 {
		return 1 + american/100, nil
	}
	return 1 + 100/math.Abs(american), nil
}

// DecimalToImplied converts decimal odds to implied probability
func DecimalToImplied(decimal float64) (float64, error) {
	if decimal <= 1 || math.IsNaN(decimal) || math.IsInf(decimal, 0) {
		return 0, NewInvalidOddsError(decimal, "decimal odds must be greater than 1")
	}
	return 1 / decimal, nil
}

// AmericanToImplied converts American odds directly to implied probability
func AmericanToImplied(american float64) (float64, error) {
	d, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return DecimalToImplied(d)
}

// ImpliedToAmerican converts an implied probability back to American odds.
// Probabilities at or above 0.5 map to negative (favorite) odds.
func ImpliedToAmerican(p float64) (float64, error) {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return 0, NewInvalidOddsError(p, "probability must be in (0, 1)")
	}
	if p >= 0.5 {
		return -100 * p / (1 - p), nil
	}
	return 100 * (1 - p) / p, nil
}

// DecimalToAmerican converts decimal odds back to American odds
func DecimalToAmerican(decimal float64) (float64, error) {
	p, err := DecimalToImplied(decimal)
	if err != nil {
		return 0, err
	}
	return ImpliedToAmerican(p)
}
