package validator

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/feed"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/odds"
)

// FinalCheck re-fetches current odds immediately before dispatch and
// re-runs the full gate against them. The detection-time snapshot is never
// trusted at this point: the market may have moved or closed. A fetch
// failure surfaces as CancelReasonError so the dispatcher can apply its
// fail-open/fail-closed policy.
func (v *Validator) FinalCheck(ctx context.Context, opp *models.Opportunity, oddsFeed feed.OddsFeed, now time.Time) Result {
	if opp.IsExpired(now) {
		return Result{Reason: models.CancelReasonExpired}
	}

	quotes, err := oddsFeed.GetQuotes(ctx, opp.GameID, []models.MarketType{opp.MarketType})
	if err != nil {
		v.logger.WithError(err).WithFields(logrus.Fields{
			"opportunity_id": opp.ID,
			"game_id":        opp.GameID,
		}).Warn("Final re-check fetch failed")
		return Result{Reason: models.CancelReasonError, Detail: err.Error()}
	}

	current := indexQuotes(quotes)
	for _, leg := range opp.Legs {
		quote, ok := current[leg.Quote.Key()]
		if !ok || !quote.Available {
			return Result{Reason: models.CancelReasonUnavailable}
		}

		if math.Abs(quote.AmericanOdds-leg.Quote.AmericanOdds) > v.cfg.RecheckOddsTolerance {
			return Result{Reason: models.CancelReasonOddsShifted}
		}
		if shifted, err := impliedShift(quote.AmericanOdds, leg.Quote.AmericanOdds); err != nil || shifted > v.cfg.RecheckProbTolerance {
			return Result{Reason: models.CancelReasonOddsShifted}
		}

		if now.Sub(quote.Timestamp) > v.cfg.MaxQuoteAge {
			return Result{Reason: models.CancelReasonStale}
		}
	}

	// The refreshed quotes passed; run the standard gate last so
	// confidence downgrades still apply at dispatch time.
	return v.Validate(ctx, opp, now)
}

func indexQuotes(quotes []models.OddsQuote) map[string]models.OddsQuote {
	indexed := make(map[string]models.OddsQuote, len(quotes))
	for _, q := range quotes {
		indexed[q.Key()] = q
	}
	return indexed
}

func impliedShift(currentAmerican, detectedAmerican float64) (float64, error) {
	current, err := odds.AmericanToImplied(currentAmerican)
	if err != nil {
		return 0, err
	}
	detected, err := odds.AmericanToImplied(detectedAmerican)
	if err != nil {
		return 0, err
	}
	return math.Abs(current - detected), nil
}
