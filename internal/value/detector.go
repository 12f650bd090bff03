// Package value flags single-book prices that deviate from the cross-book
// consensus enough to carry positive expected value.
package value

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/models"
)

// Config holds value detection parameters
type Config struct {
	// MinEdge is the minimum gap between consensus and book probability
	// before a quote is flagged.
	MinEdge float64 `mapstructure:"min_edge" validate:"gt=0,lt=1"`
	// KellyFraction scales the full Kelly stake down to guard against
	// noisy edges.
	KellyFraction   float64       `mapstructure:"kelly_fraction" validate:"gt=0,lte=1"`
	Bankroll        float64       `mapstructure:"bankroll" validate:"gt=0"`
	ExecutionWindow time.Duration `mapstructure:"execution_window" validate:"gt=0"`
	SharpeDelta     float64       `mapstructure:"sharpe_delta" validate:"gt=0"`
}

// DefaultConfig returns standard value detection parameters
func DefaultConfig() Config {
	return Config{
		MinEdge:         0.05,
		KellyFraction:   0.25,
		Bankroll:        1000,
		ExecutionWindow: 300 * time.Second,
		SharpeDelta:     1e-6,
	}
}

// Consensus is the robust fair-probability estimate for one outcome
type Consensus struct {
	Probability float64
	BookCount   int
}

// Detector computes consensus prices and flags value opportunities
type Detector struct {
	cfg    Config
	logger *logrus.Logger
}

// NewDetector creates a value detector
func NewDetector(cfg Config, logger *logrus.Logger) *Detector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// ComputeConsensus returns the trimmed mean of adjusted implied
// probabilities. With four or more books the highest and lowest are
// dropped; below that every book counts.
func (d *Detector) ComputeConsensus(legs []models.AdjustedLeg) Consensus {
	if len(legs) == 0 {
		return Consensus{}
	}

	probs := make([]float64, 0, len(legs))
	for _, leg := range legs {
		if leg.Quote.Available {
			probs = append(probs, leg.AdjustedProbability)
		}
	}
	if len(probs) == 0 {
		return Consensus{}
	}

	bookCount := len(probs)
	if bookCount >= 4 {
		sort.Float64s(probs)
		probs = probs[1 : len(probs)-1]
	}

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	return Consensus{
		Probability: sum / float64(len(probs)),
		BookCount:   bookCount,
	}
}

// Detect scans one outcome's legs against their consensus and returns any
// value opportunities. A leg qualifies when its adjusted probability sits
// at least MinEdge below the consensus fair probability.
func (d *Detector) Detect(legs []models.AdjustedLeg) []*models.Opportunity {
	consensus := d.ComputeConsensus(legs)
	if consensus.BookCount < 2 {
		return nil
	}

	var opps []*models.Opportunity
	for _, leg := range legs {
		if !leg.Quote.Available {
			continue
		}
		edge := consensus.Probability - leg.AdjustedProbability
		if edge < d.cfg.MinEdge {
			continue
		}
		opps = append(opps, d.buildOpportunity(leg, consensus, edge))
	}
	return opps
}

func (d *Detector) buildOpportunity(leg models.AdjustedLeg, consensus Consensus, edge float64) *models.Opportunity {
	// Fractional Kelly on the consensus edge.
	kelly := edge / (leg.AdjustedDecimal - 1)
	stake := d.cfg.Bankroll * kelly * d.cfg.KellyFraction

	leg.StakeRatio = 1
	leg.StakeAmount = stake
	leg.ExpectedReturn = stake * leg.AdjustedDecimal

	// Expected value per unit stake at the consensus probability.
	profitMargin := consensus.Probability*leg.AdjustedDecimal - 1
	riskAdjusted := profitMargin * leg.ExecutionConfidence
	sharpe := riskAdjusted / (profitMargin - riskAdjusted + d.cfg.SharpeDelta)

	now := time.Now()
	opp := &models.Opportunity{
		ID:                 uuid.New(),
		Type:               models.OpportunityTypeValue,
		GameID:             leg.Quote.GameID,
		MarketType:         leg.Quote.MarketType,
		Legs:               []models.AdjustedLeg{leg},
		ProfitMargin:       profitMargin,
		RiskAdjustedProfit: riskAdjusted,
		SharpeRatio:        sharpe,
		Edge:               edge,
		ConsensusProb:      consensus.Probability,
		ConsensusBooks:     consensus.BookCount,
		Confidence:         d.gradeConfidence(consensus.BookCount, edge),
		TotalStake:         stake,
		DetectedAt:         now,
		ExpiresAt:          now.Add(d.cfg.ExecutionWindow),
	}

	d.logger.WithFields(logrus.Fields{
		"game_id":     opp.GameID,
		"market_type": opp.MarketType,
		"book":        leg.Quote.Book,
		"edge":        edge,
		"consensus":   consensus.Probability,
		"books":       consensus.BookCount,
		"confidence":  opp.Confidence,
	}).Debug("Value opportunity detected")

	return opp
}

func (d *Detector) gradeConfidence(bookCount int, edge float64) models.ConfidenceLevel {
	switch {
	case bookCount >= 4 && edge >= 2*d.cfg.MinEdge:
		return models.ConfidenceHigh
	case bookCount >= 2 && edge >= d.cfg.MinEdge:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
