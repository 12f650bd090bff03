// Package arbitrage detects risk-free betting opportunities across books.
package arbitrage

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/models"
)

// Config holds arbitrage detection parameters
type Config struct {
	// Epsilon is the false-positive buffer: probabilities must sum below
	// 1 - Epsilon before an opportunity is reported.
	Epsilon         float64       `mapstructure:"epsilon" validate:"gte=0,lt=0.1"`
	TotalStake      float64       `mapstructure:"total_stake" validate:"gt=0"`
	ExecutionWindow time.Duration `mapstructure:"execution_window" validate:"gt=0"`
	SharpeDelta     float64       `mapstructure:"sharpe_delta" validate:"gt=0"`
}

// DefaultConfig returns standard detection parameters
func DefaultConfig() Config {
	return Config{
		Epsilon:         0.001,
		TotalStake:      1000,
		ExecutionWindow: 300 * time.Second,
		SharpeDelta:     1e-6,
	}
}

// Risk weight components, summing to 1. Reliability dominates because a
// leg that never fills voids the whole arbitrage.
const (
	weightReliability = 0.4
	weightStakeSize   = 0.3
	weightLiquidity   = 0.2
	weightDelay       = 0.1

	// Execution delays at or beyond this are maximally risky.
	maxDelaySeconds = 30.0
)

// Engine detects arbitrage across execution-adjusted legs
type Engine struct {
	cfg    Config
	logger *logrus.Logger
}

// NewEngine creates an arbitrage engine
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// DetectTwoWay checks opposite sides of a two-outcome market. Returns nil
// when no opportunity exists; absence of arbitrage is a normal outcome,
// not an error.
func (e *Engine) DetectTwoWay(legA, legB models.AdjustedLeg, profileA, profileB book.Profile) *models.Opportunity {
	return e.DetectNWay([]models.AdjustedLeg{legA, legB}, []book.Profile{profileA, profileB})
}

// DetectNWay checks a full outcome cover of one market, one leg per
// outcome, each from its own book. Stakes are allocated proportional to
// adjusted implied probability, which equalizes payout across legs.
func (e *Engine) DetectNWay(legs []models.AdjustedLeg, profiles []book.Profile) *models.Opportunity {
	if len(legs) < 2 || len(legs) != len(profiles) {
		return nil
	}

	probSum := 0.0
	for _, leg := range legs {
		if !leg.Quote.Available {
			return nil
		}
		if leg.AdjustedProbability <= 0 || leg.AdjustedProbability >= 1 {
			return nil
		}
		probSum += leg.AdjustedProbability
	}

	if probSum >= 1-e.cfg.Epsilon {
		return nil
	}

	profitMargin := 1/probSum - 1
	allocated := e.allocateStakes(legs, probSum)

	riskScore := e.executionRiskScore(allocated, profiles)
	riskAdjusted := profitMargin - riskScore*profitMargin
	sharpe := riskAdjusted / (profitMargin - riskAdjusted + e.cfg.SharpeDelta)

	now := time.Now()
	opp := &models.Opportunity{
		ID:                 uuid.New(),
		Type:               models.OpportunityTypeArbitrage,
		GameID:             legs[0].Quote.GameID,
		MarketType:         legs[0].Quote.MarketType,
		Legs:               allocated,
		ProfitMargin:       profitMargin,
		RiskAdjustedProfit: riskAdjusted,
		SharpeRatio:        sharpe,
		Confidence:         e.gradeConfidence(riskAdjusted, allocated),
		TotalStake:         e.cfg.TotalStake,
		DetectedAt:         now,
		ExpiresAt:          now.Add(e.cfg.ExecutionWindow),
	}

	e.logger.WithFields(logrus.Fields{
		"game_id":       opp.GameID,
		"market_type":   opp.MarketType,
		"legs":          len(legs),
		"profit_margin": profitMargin,
		"risk_adjusted": riskAdjusted,
		"confidence":    opp.Confidence,
	}).Debug("Arbitrage opportunity detected")

	return opp
}

// allocateStakes splits the total stake proportional to each leg's
// adjusted implied probability and fills in the derived leg fields.
func (e *Engine) allocateStakes(legs []models.AdjustedLeg, probSum float64) []models.AdjustedLeg {
	allocated := make([]models.AdjustedLeg, len(legs))
	for i, leg := range legs {
		ratio := leg.AdjustedProbability / probSum
		leg.StakeRatio = ratio
		leg.StakeAmount = e.cfg.TotalStake * ratio
		leg.ExpectedReturn = leg.StakeAmount * leg.AdjustedDecimal
		allocated[i] = leg
	}
	return allocated
}

// executionRiskScore combines per-leg risk factors into [0,1]. The mean
// across legs is used: every leg must fill, so no single leg dominates.
func (e *Engine) executionRiskScore(legs []models.AdjustedLeg, profiles []book.Profile) float64 {
	total := 0.0
	for i, leg := range legs {
		p := profiles[i]

		reliabilityRisk := 1 - p.ReliabilityScore
		stakeRisk := 0.0
		if p.MaxStake > 0 {
			stakeRisk = clamp01(leg.StakeAmount / p.MaxStake)
		}
		liquidityRisk := p.LiquidityTier.Risk()
		delayRisk := clamp01(p.ExecutionDelaySeconds / maxDelaySeconds)

		total += weightReliability*reliabilityRisk +
			weightStakeSize*stakeRisk +
			weightLiquidity*liquidityRisk +
			weightDelay*delayRisk
	}
	return total / float64(len(legs))
}

// gradeConfidence maps risk-adjusted profit and leg execution confidence
// onto the three-level scale
func (e *Engine) gradeConfidence(riskAdjusted float64, legs []models.AdjustedLeg) models.ConfidenceLevel {
	minExec := 1.0
	for _, leg := range legs {
		if leg.ExecutionConfidence < minExec {
			minExec = leg.ExecutionConfidence
		}
	}

	switch {
	case riskAdjusted >= 0.02 && minExec >= 0.8:
		return models.ConfidenceHigh
	case riskAdjusted > 0 && minExec >= 0.5:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
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
