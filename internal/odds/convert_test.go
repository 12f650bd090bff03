package odds

import (
	"errors"
	"math"
	"testing"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american float64
		want     float64
	}{
		{"even money positive", 100, 2.0},
		{"even money negative", -100, 2.0},
		{"underdog", 250, 3.5},
		{"favorite", -200, 1.5},
		{"slight favorite", -110, 1.0 + 100.0/110.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmericanToDecimal(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AmericanToDecimal(%v) = %v, want %v", tt.american, got, tt.want)
			}
		})
	}
}

func TestAmericanToDecimalZeroRejected(t *testing.T) {
	_, err := AmericanToDecimal(0)
	if err == nil {
		t.Fatal("expected error for zero american odds")
	}
	var invalidErr *InvalidOddsError
	if !errors.As(err, &invalidErr) {
		t.Errorf("expected InvalidOddsError, got %T", err)
	}
}

func TestImpliedToAmericanBounds(t *testing.T) {
	for _, p := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		if _, err := ImpliedToAmerican(p); err == nil {
			t.Errorf("expected error for probability %v", p)
		}
	}
}

func TestRoundTripAmericanDecimal(t *testing.T) {
	cases := []float64{100, -100, 150, -150, 250, -250, 120, -105, 320, 180, -110, 1000, -10000}
	for _, american := range cases {
		d, err := AmericanToDecimal(american)
		if err != nil {
			t.Fatalf("AmericanToDecimal(%v): %v", american, err)
		}
		back, err := DecimalToAmerican(d)
		if err != nil {
			t.Fatalf("DecimalToAmerican(%v): %v", d, err)
		}
		if math.Abs(back-american) > 1e-6 {
			t.Errorf("round trip %v -> %v -> %v", american, d, back)
		}
	}
}

func TestRoundTripAmericanProbability(t *testing.T) {
	cases := []float64{100, -100, 150, -150, 250, 120, -105, -110}
	for _, american := range cases {
		p, err := AmericanToImplied(american)
		if err != nil {
			t.Fatalf("AmericanToImplied(%v): %v", american, err)
		}
		if p <= 0 || p >= 1 {
			t.Fatalf("probability out of range: %v", p)
		}
		back, err := ImpliedToAmerican(p)
		if err != nil {
			t.Fatalf("ImpliedToAmerican(%v): %v", p, err)
		}
		if math.Abs(back-american) > 1e-6 {
			t.Errorf("round trip %v -> %v -> %v", american, p, back)
		}
	}
}

func TestImpliedToAmericanFavoriteSign(t *testing.T) {
	odds, err := ImpliedToAmerican(0.6)
	if err != nil {
		t.Fatal(err)
	}
	if odds >= 0 {
		t.Errorf("favorite probability should map to negative odds, got %v", odds)
	}

	odds, err = ImpliedToAmerican(0.4)
	if err != nil {
		t.Fatal(err)
	}
	if odds <= 0 {
		t.Errorf("underdog probability should map to positive odds, got %v", odds)
	}
}
