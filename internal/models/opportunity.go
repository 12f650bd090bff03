package models

import (
	"time"

	"github.com/google/uuid"
)

// OpportunityType distinguishes arbitrage from single-sided value plays
type OpportunityType string

const (
	OpportunityTypeArbitrage OpportunityType = "ARBITRAGE"
	OpportunityTypeValue     OpportunityType = "VALUE"
)

// ConfidenceLevel grades how trustworthy a detected opportunity is
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Downgrade lowers confidence by one level
func (c ConfidenceLevel) Downgrade() ConfidenceLevel {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AdjustedLeg is an odds quote after execution-cost adjustment for a stake size
type AdjustedLeg struct {
	Quote               OddsQuote `json:"quote"`
	OriginalDecimal     float64   `json:"original_decimal"`
	AdjustedDecimal     float64   `json:"adjusted_decimal"`
	AdjustedAmerican    float64   `json:"adjusted_american"`
	RawProbability      float64   `json:"raw_probability"`
	AdjustedProbability float64   `json:"adjusted_probability"`
	StakeRatio          float64   `json:"stake_ratio"`
	StakeAmount         float64   `json:"stake_amount"`
	ExpectedReturn      float64   `json:"expected_return"`
	ExecutionConfidence float64   `json:"execution_confidence"`
	AppliedSpread       float64   `json:"applied_spread"`
	AppliedSlippage     float64   `json:"applied_slippage"`
	AppliedImpact       float64   `json:"applied_impact"`
}

// Opportunity is a detected arbitrage or value play. It is immutable once
// created; re-evaluation produces a new Opportunity.
type Opportunity struct {
	ID                 uuid.UUID       `json:"id"`
	Type               OpportunityType `json:"type"`
	GameID             string          `json:"game_id"`
	MarketType         MarketType      `json:"market_type"`
	Legs               []AdjustedLeg   `json:"legs"`
	ProfitMargin       float64         `json:"profit_margin"`
	RiskAdjustedProfit float64         `json:"risk_adjusted_profit"`
	SharpeRatio        float64         `json:"sharpe_ratio"`
	Edge               float64         `json:"edge,omitempty"`
	ConsensusProb      float64         `json:"consensus_probability,omitempty"`
	ConsensusBooks     int             `json:"consensus_books,omitempty"`
	Confidence         ConfidenceLevel `json:"confidence"`
	TotalStake         float64         `json:"total_stake"`
	DetectedAt         time.Time       `json:"detected_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

// IsExpired reports whether the execution window has closed
func (o *Opportunity) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// CancellationReason records why a signal was not dispatched
type CancellationReason string

const (
	CancelReasonUnavailable CancellationReason = "unavailable"
	CancelReasonOddsShifted CancellationReason = "odds_shifted"
	CancelReasonStale       CancellationReason = "stale"
	CancelReasonExpired     CancellationReason = "expired"
	CancelReasonError       CancellationReason = "error"
	CancelReasonDuplicate   CancellationReason = "duplicate"

	// Suppression-gate rejections, tracked as avoided false positives.
	CancelReasonLowProfit     CancellationReason = "below_min_profit"
	CancelReasonLowConfidence CancellationReason = "low_confidence"
)

// IsFalsePositiveSuppression reports whether the reason counts toward the
// false-positives-avoided aggregate rather than staleness or errors
func (r CancellationReason) IsFalsePositiveSuppression() bool {
	return r == CancelReasonLowProfit || r == CancelReasonLowConfidence
}

// HighValueSignal is the serializable record handed to external consumers
type HighValueSignal struct {
	OpportunityID      uuid.UUID       `json:"opportunity_id"`
	Type               OpportunityType `json:"type"`
	GameID             string          `json:"game_id"`
	MarketType         MarketType      `json:"market_type"`
	ProfitMargin       float64         `json:"profit_margin"`
	RiskAdjustedProfit float64         `json:"risk_adjusted_profit"`
	SharpeRatio        float64         `json:"sharpe_ratio"`
	Confidence         ConfidenceLevel `json:"confidence"`
	Legs               []AdjustedLeg   `json:"legs"`
	DetectedAt         time.Time       `json:"detected_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
	DispatchedAt       time.Time       `json:"dispatched_at"`
}

// NewHighValueSignal builds the dispatch record for an opportunity
func NewHighValueSignal(o *Opportunity, dispatchedAt time.Time) *HighValueSignal {
	return &HighValueSignal{
		OpportunityID:      o.ID,
		Type:               o.Type,
		GameID:             o.GameID,
		MarketType:         o.MarketType,
		ProfitMargin:       o.ProfitMargin,
		RiskAdjustedProfit: o.RiskAdjustedProfit,
		SharpeRatio:        o.SharpeRatio,
		Confidence:         o.Confidence,
		Legs:               o.Legs,
		DetectedAt:         o.DetectedAt,
		ExpiresAt:          o.ExpiresAt,
		DispatchedAt:       dispatchedAt,
	}
}
