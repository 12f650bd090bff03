// Package execution models the frictions of actually getting a bet filled:
// spread crossing, slippage, market impact, and liquidity tier penalties.
package execution

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/odds"
)

// CostConfig holds the tunable constants of the cost model. The defaults
// are heuristics, not physical constants; they should be revisited against
// settlement data.
type CostConfig struct {
	ImpactCap         float64 `mapstructure:"impact_cap" validate:"gt=0"`
	ImpactDamping     float64 `mapstructure:"impact_damping" validate:"gt=0,lte=1"`
	MediumTierPenalty float64 `mapstructure:"medium_tier_penalty" validate:"gt=0,lte=1"`
	LowTierPenalty    float64 `mapstructure:"low_tier_penalty" validate:"gt=0,lte=1"`
}

// DefaultCostConfig returns the standard cost model constants
func DefaultCostConfig() CostConfig {
	return CostConfig{
		ImpactCap:         3.0,
		ImpactDamping:     0.5,
		MediumTierPenalty: 0.995,
		LowTierPenalty:    0.990,
	}
}

// CostModel converts raw quotes into execution-adjusted legs
type CostModel struct {
	cfg    CostConfig
	logger *logrus.Logger
}

// NewCostModel creates a cost model with the given constants
func NewCostModel(cfg CostConfig, logger *logrus.Logger) *CostModel {
	if logger == nil {
		logger = logrus.New()
	}
	return &CostModel{cfg: cfg, logger: logger}
}

// Adjust applies execution costs to a quote for a given stake size.
//
// Factors are applied multiplicatively to the decimal odds in a fixed
// order (spread, slippage, impact, liquidity tier), each strictly reducing
// payoff. The ordering is a modeling choice kept stable so each factor's
// effect stays independently visible in tests.
func (m *CostModel) Adjust(quote models.OddsQuote, profile book.Profile, stake float64) (models.AdjustedLeg, error) {
	decimal, err := odds.AmericanToDecimal(quote.AmericanOdds)
	if err != nil {
		return models.AdjustedLeg{}, fmt.Errorf("quote %s: %w", quote.Key(), err)
	}
	rawProb := 1 / decimal

	// Crossing to the worse side of the quoted spread.
	spreadCost := profile.BidAskSpread / 2
	adjusted := decimal * (1 - spreadCost)

	adjusted *= 1 - profile.SlippageFactor

	// Market impact saturates at ImpactCap times the threshold.
	impactMultiplier := 0.0
	appliedImpact := 0.0
	if profile.ImpactThreshold > 0 && stake > profile.ImpactThreshold {
		impactMultiplier = math.Min(stake/profile.ImpactThreshold, m.cfg.ImpactCap)
		appliedImpact = profile.SlippageFactor * impactMultiplier * m.cfg.ImpactDamping
		adjusted *= 1 - appliedImpact
	}

	adjusted *= m.tierPenalty(profile.LiquidityTier)

	// Payoff below even money means the leg can never return its stake.
	if adjusted <= 1 {
		return models.AdjustedLeg{}, odds.NewInvalidOddsError(adjusted, "execution costs consumed the entire payoff")
	}

	adjustedAmerican, err := odds.DecimalToAmerican(adjusted)
	if err != nil {
		return models.AdjustedLeg{}, err
	}
	adjustedProb := 1 / adjusted

	excess := math.Max(impactMultiplier-1, 0)
	confidence := clamp01(profile.ReliabilityScore * (1 - 0.1*excess))

	return models.AdjustedLeg{
		Quote:               quote,
		OriginalDecimal:     decimal,
		AdjustedDecimal:     adjusted,
		AdjustedAmerican:    adjustedAmerican,
		RawProbability:      rawProb,
		AdjustedProbability: adjustedProb,
		StakeAmount:         stake,
		ExpectedReturn:      stake * adjusted,
		ExecutionConfidence: confidence,
		AppliedSpread:       spreadCost,
		AppliedSlippage:     profile.SlippageFactor,
		AppliedImpact:       appliedImpact,
	}, nil
}

func (m *CostModel) tierPenalty(tier book.LiquidityTier) float64 {
	switch tier {
	case book.LiquidityHigh:
		return 1.0
	case book.LiquidityLow:
		return m.cfg.LowTierPenalty
	default:
		return m.cfg.MediumTierPenalty
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
