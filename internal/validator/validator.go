// Package validator applies freshness, false-positive suppression, and
// expiration gates before an opportunity may leave the core.
package validator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/feed"
	"github.com/yourusername/edge-scanner/internal/models"
)

// Config holds validation thresholds
type Config struct {
	// MaxQuoteAge bounds how far behind a constituent quote may lag its
	// book's latest known update.
	MaxQuoteAge time.Duration `mapstructure:"max_quote_age" validate:"gt=0"`
	// MinRiskAdjustedProfit rejects opportunities whose discounted margin
	// is below this floor.
	MinRiskAdjustedProfit float64 `mapstructure:"min_risk_adjusted_profit" validate:"gte=0"`
	// Recheck tolerances: a post-detection odds move beyond either bound
	// cancels dispatch.
	RecheckOddsTolerance float64 `mapstructure:"recheck_odds_tolerance" validate:"gt=0"`
	RecheckProbTolerance float64 `mapstructure:"recheck_prob_tolerance" validate:"gt=0"`
}

// DefaultConfig returns standard validation thresholds
func DefaultConfig() Config {
	return Config{
		MaxQuoteAge:           60 * time.Second,
		MinRiskAdjustedProfit: 0.005,
		RecheckOddsTolerance:  5,
		RecheckProbTolerance:  0.01,
	}
}

// Result records a validation outcome. A rejected opportunity carries the
// reason; staleness is a rejection, not an error.
type Result struct {
	Accepted    bool
	Reason      models.CancellationReason
	Detail      string
	Opportunity *models.Opportunity
}

// Validator gates opportunities before emission
type Validator struct {
	cfg    Config
	oracle feed.LatencyOracle         // optional
	cross  feed.CrossValidationSignal // optional
	logger *logrus.Logger
}

// NewValidator creates a validator. The latency oracle and cross
// validation signal may be nil.
func NewValidator(cfg Config, oracle feed.LatencyOracle, cross feed.CrossValidationSignal, logger *logrus.Logger) *Validator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{cfg: cfg, oracle: oracle, cross: cross, logger: logger}
}

// Validate runs the suppression gate in order. Each check is independently
// sufficient to reject. The returned opportunity may carry a downgraded
// confidence; the input is never mutated.
func (v *Validator) Validate(ctx context.Context, opp *models.Opportunity, now time.Time) Result {
	// Expiration is a hard upper bound independent of freshness.
	if opp.IsExpired(now) {
		return Result{Reason: models.CancelReasonExpired}
	}

	if reason, ok := v.checkFreshness(opp, now); !ok {
		return Result{Reason: reason}
	}

	if opp.ProfitMargin <= 0 || opp.RiskAdjustedProfit < v.cfg.MinRiskAdjustedProfit {
		return Result{Reason: models.CancelReasonLowProfit}
	}

	confidence := opp.Confidence
	if confidence == models.ConfidenceLow {
		return Result{Reason: models.CancelReasonLowConfidence}
	}

	// Cross-validation contradiction downgrades rather than rejects.
	if v.cross != nil {
		correlated, err := v.cross.CorrelatedSignal(ctx, opp.GameID)
		if err != nil {
			v.logger.WithError(err).WithField("game_id", opp.GameID).Warn("Cross-validation signal unavailable")
		} else if !correlated {
			confidence = confidence.Downgrade()
			if confidence == models.ConfidenceLow {
				return Result{Reason: models.CancelReasonLowConfidence}
			}
		}
	}

	accepted := opp
	if confidence != opp.Confidence {
		copied := *opp
		copied.Confidence = confidence
		accepted = &copied
	}
	return Result{Accepted: true, Opportunity: accepted}
}

// checkFreshness rejects opportunities built from quotes older than
// MaxQuoteAge. Age is measured against the latest known update for that
// book and market when the oracle can supply one, otherwise against the
// wall clock.
func (v *Validator) checkFreshness(opp *models.Opportunity, now time.Time) (models.CancellationReason, bool) {
	for _, leg := range opp.Legs {
		reference := now
		if v.oracle != nil {
			if latest, ok := v.oracle.LastUpdateTime(leg.Quote.Book, leg.Quote.GameID, leg.Quote.MarketType); ok {
				reference = latest
			}
		}
		if reference.Sub(leg.Quote.Timestamp) > v.cfg.MaxQuoteAge {
			v.logger.WithFields(logrus.Fields{
				"opportunity_id": opp.ID,
				"book":           leg.Quote.Book,
				"quote_age":      reference.Sub(leg.Quote.Timestamp).Seconds(),
			}).Debug("Opportunity rejected as stale")
			return models.CancelReasonStale, false
		}
	}
	return "", true
}
