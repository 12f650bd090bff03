package arbitrage

import (
	"math"
	"testing"
	"time"

	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/odds"
)

func reliableProfile(name string) book.Profile {
	return book.Profile{
		Name:                  name,
		BidAskSpread:          0.01,
		SlippageFactor:        0.005,
		MinStake:              1,
		MaxStake:              10000,
		ExecutionDelaySeconds: 2,
		ReliabilityScore:      0.95,
		LiquidityTier:         book.LiquidityHigh,
		ImpactThreshold:       5000,
		StressSpreadScale:     1.5,
	}
}

// legFor builds an adjusted leg directly from American odds with no
// execution costs applied, isolating the engine math under test.
func legFor(t *testing.T, bookName, outcome string, american float64) models.AdjustedLeg {
	t.Helper()
	decimal, err := odds.AmericanToDecimal(american)
	if err != nil {
		t.Fatal(err)
	}
	return models.AdjustedLeg{
		Quote: models.OddsQuote{
			GameID:       "game-1",
			MarketType:   models.MarketTypeHeadToHead,
			Outcome:      outcome,
			Book:         bookName,
			AmericanOdds: american,
			Timestamp:    time.Now(),
			Available:    true,
		},
		OriginalDecimal:     decimal,
		AdjustedDecimal:     decimal,
		RawProbability:      1 / decimal,
		AdjustedProbability: 1 / decimal,
		ExecutionConfidence: 0.95,
	}
}

func TestDetectTwoWayClearArbitrage(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	// +120 on one side, -105 on the other sums well under 1.
	opp := e.DetectTwoWay(
		legFor(t, "book_a", "home", 120),
		legFor(t, "book_b", "away", -105),
		reliableProfile("book_a"),
		reliableProfile("book_b"),
	)

	if opp == nil {
		t.Fatal("expected arbitrage opportunity")
	}
	if opp.Type != models.OpportunityTypeArbitrage {
		t.Errorf("type = %v", opp.Type)
	}
	if opp.ProfitMargin <= 0 {
		t.Errorf("profit margin = %v, want > 0", opp.ProfitMargin)
	}
	if opp.RiskAdjustedProfit <= 0 {
		t.Errorf("risk-adjusted profit = %v, want > 0", opp.RiskAdjustedProfit)
	}
	if opp.RiskAdjustedProfit > opp.ProfitMargin {
		t.Errorf("risk adjustment should discount profit, got %v > %v", opp.RiskAdjustedProfit, opp.ProfitMargin)
	}
	if opp.SharpeRatio <= 0 {
		t.Errorf("sharpe ratio = %v, want > 0", opp.SharpeRatio)
	}
}

func TestDetectTwoWayNoArbitrage(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	// Standard -110/-110 vig market: probabilities sum above 1.
	opp := e.DetectTwoWay(
		legFor(t, "book_a", "home", -110),
		legFor(t, "book_b", "away", -110),
		reliableProfile("book_a"),
		reliableProfile("book_b"),
	)
	if opp != nil {
		t.Fatalf("expected no opportunity, got margin %v", opp.ProfitMargin)
	}
}

func TestDetectTwoWayEpsilonSuppressesMarginalCase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epsilon = 0.01
	e := NewEngine(cfg, nil)

	// +102/-105 sums to ~0.9926: inside the 1% buffer, so suppressed.
	opp := e.DetectTwoWay(
		legFor(t, "book_a", "home", 102),
		legFor(t, "book_b", "away", -105),
		reliableProfile("book_a"),
		reliableProfile("book_b"),
	)
	if opp != nil {
		t.Fatal("expected marginal opportunity to be suppressed by epsilon")
	}
}

func TestDetectTwoWayUnavailableLeg(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	legA := legFor(t, "book_a", "home", 120)
	legB := legFor(t, "book_b", "away", -105)
	legB.Quote.Available = false

	if opp := e.DetectTwoWay(legA, legB, reliableProfile("book_a"), reliableProfile("book_b")); opp != nil {
		t.Fatal("expected no opportunity when a leg is unavailable")
	}
}

func TestStakeAllocationEqualizesPayouts(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	opp := e.DetectTwoWay(
		legFor(t, "book_a", "home", 120),
		legFor(t, "book_b", "away", -105),
		reliableProfile("book_a"),
		reliableProfile("book_b"),
	)
	if opp == nil {
		t.Fatal("expected opportunity")
	}

	payout0 := opp.Legs[0].StakeAmount * opp.Legs[0].AdjustedDecimal
	payout1 := opp.Legs[1].StakeAmount * opp.Legs[1].AdjustedDecimal
	if math.Abs(payout0-payout1)/payout0 > 1e-4 {
		t.Errorf("payouts not equal: %v vs %v", payout0, payout1)
	}

	totalStake := opp.Legs[0].StakeAmount + opp.Legs[1].StakeAmount
	if math.Abs(totalStake-e.cfg.TotalStake) > 1e-6 {
		t.Errorf("stakes sum to %v, want %v", totalStake, e.cfg.TotalStake)
	}
	if payout0 <= totalStake {
		t.Errorf("guaranteed payout %v must exceed total stake %v", payout0, totalStake)
	}
}

func TestDetectThreeWay(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	legs := []models.AdjustedLeg{
		legFor(t, "book_a", "home", 250),
		legFor(t, "book_b", "draw", 320),
		legFor(t, "book_c", "away", 180),
	}
	for i := range legs {
		legs[i].Quote.MarketType = models.MarketTypeThreeWay
	}
	profiles := []book.Profile{
		reliableProfile("book_a"),
		reliableProfile("book_b"),
		reliableProfile("book_c"),
	}

	opp := e.DetectNWay(legs, profiles)
	if opp == nil {
		t.Fatal("expected three-way opportunity")
	}

	ratioSum := 0.0
	for _, leg := range opp.Legs {
		ratioSum += leg.StakeRatio
	}
	if math.Abs(ratioSum-1.0) > 1e-9 {
		t.Errorf("stake ratios sum to %v, want 1.0", ratioSum)
	}

	// All three payouts equal within tolerance.
	base := opp.Legs[0].StakeAmount * opp.Legs[0].AdjustedDecimal
	for _, leg := range opp.Legs[1:] {
		payout := leg.StakeAmount * leg.AdjustedDecimal
		if math.Abs(payout-base)/base > 1e-4 {
			t.Errorf("payout mismatch: %v vs %v", payout, base)
		}
	}
}

func TestDetectNWayRequiresTwoLegs(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	legs := []models.AdjustedLeg{legFor(t, "book_a", "home", 500)}
	if opp := e.DetectNWay(legs, []book.Profile{reliableProfile("book_a")}); opp != nil {
		t.Fatal("expected no opportunity with a single leg")
	}
}

func TestNoFalseArbitrageProperty(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	// Pairs whose implied probabilities sum to >= 1 in every case.
	pairs := [][2]float64{
		{-110, -110},
		{-150, 120},
		{-200, 150},
		{100, -105},
		{-120, 100},
	}
	for _, pair := range pairs {
		legA := legFor(t, "book_a", "home", pair[0])
		legB := legFor(t, "book_b", "away", pair[1])
		if legA.AdjustedProbability+legB.AdjustedProbability < 1 {
			continue
		}
		if opp := e.DetectTwoWay(legA, legB, reliableProfile("book_a"), reliableProfile("book_b")); opp != nil {
			t.Errorf("false arbitrage for %v/%v", pair[0], pair[1])
		}
	}
}

func TestLowReliabilityDegradesConfidence(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	legA := legFor(t, "book_a", "home", 120)
	legB := legFor(t, "book_b", "away", -105)
	legA.ExecutionConfidence = 0.3
	shaky := reliableProfile("book_a")
	shaky.ReliabilityScore = 0.3

	opp := e.DetectTwoWay(legA, legB, shaky, reliableProfile("book_b"))
	if opp == nil {
		t.Fatal("expected opportunity")
	}
	if opp.Confidence != models.ConfidenceLow {
		t.Errorf("confidence = %v, want low for an unreliable leg", opp.Confidence)
	}
	if opp.RiskAdjustedProfit >= opp.ProfitMargin {
		t.Error("risk adjustment should discount margin for unreliable books")
	}
}
