// Package logger provides signal dispatch audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/models"
)

// SignalLogger provides a dedicated audit trail for signal dispatch
// decisions. Every dispatched or cancelled signal leaves a record here.
type SignalLogger struct {
	*logrus.Entry
}

// NewSignalLogger creates a new signal logger.
func NewSignalLogger(baseLogger *logrus.Logger) *SignalLogger {
	return &SignalLogger{
		Entry: baseLogger.WithField("component", "dispatch"),
	}
}

// LogSignalDispatched logs a signal that passed final verification and
// was emitted.
func (sl *SignalLogger) LogSignalDispatched(signal *models.HighValueSignal) {
	books := make([]string, len(signal.Legs))
	for i, leg := range signal.Legs {
		books[i] = leg.Quote.Book
	}
	sl.WithFields(logrus.Fields{
		"opportunity_id":       signal.OpportunityID.String(),
		"signal_type":          string(signal.Type),
		"game_id":              signal.GameID,
		"market_type":          string(signal.MarketType),
		"books":                books,
		"profit_margin":        signal.ProfitMargin,
		"risk_adjusted_profit": signal.RiskAdjustedProfit,
		"confidence":           string(signal.Confidence),
		"dispatched_at":        signal.DispatchedAt.Unix(),
	}).Info("Signal dispatched")
}

// LogSignalCancelled logs a signal cancelled between detection and dispatch.
func (sl *SignalLogger) LogSignalCancelled(opportunityID, gameID string, reason models.CancellationReason) {
	sl.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"game_id":        gameID,
		"reason":         string(reason),
	}).Info("Signal cancelled before dispatch")
}

// LogFailOpenDispatch logs a dispatch that bypassed a failed re-check
// under the fail-open policy. Warn level: these need human review.
func (sl *SignalLogger) LogFailOpenDispatch(opportunityID, gameID string, recheckError string) {
	sl.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"game_id":        gameID,
		"recheck_error":  recheckError,
	}).Warn("Signal dispatched under fail-open policy")
}

// LogRecheckOutcome logs the result of a pre-dispatch odds re-check.
func (sl *SignalLogger) LogRecheckOutcome(opportunityID string, accepted bool, reason models.CancellationReason, latencyMs float64) {
	sl.WithFields(logrus.Fields{
		"opportunity_id": opportunityID,
		"accepted":       accepted,
		"reason":         string(reason),
		"latency_ms":     latencyMs,
	}).Debug("Final re-check completed")
}
