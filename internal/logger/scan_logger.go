// Package logger provides scan-cycle logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/models"
)

// ScanLogger provides dedicated logging for scan cycle operations.
type ScanLogger struct {
	*logrus.Entry
}

// NewScanLogger creates a new scan logger.
func NewScanLogger(baseLogger *logrus.Logger) *ScanLogger {
	return &ScanLogger{
		Entry: baseLogger.WithField("component", "scanner"),
	}
}

// LogScanCycle logs a completed scan cycle summary.
func (sl *ScanLogger) LogScanCycle(report *models.ScanReport) {
	sl.WithFields(logrus.Fields{
		"scan_id":                 report.ScanID.String(),
		"games_scanned":           report.GamesScanned,
		"games_failed":            report.GamesFailed,
		"quotes_processed":        report.QuotesProcessed,
		"total_opportunities":     report.TotalOpportunities,
		"arbitrage_count":         report.ArbitrageCount,
		"value_count":             report.ValueCount,
		"stale_rejections":        report.StaleRejections,
		"false_positives_avoided": report.FalsePositivesAvoided,
		"average_profit_margin":   report.AverageProfitMargin,
		"duration_ms":             report.Duration().Milliseconds(),
	}).Info("Scan cycle completed")
}

// LogGameScanFailure logs a per-game failure that was isolated from the
// rest of the cycle.
func (sl *ScanLogger) LogGameScanFailure(scanID, gameID, reason string) {
	sl.WithFields(logrus.Fields{
		"scan_id": scanID,
		"game_id": gameID,
		"reason":  reason,
	}).Warn("Game excluded from scan cycle")
}

// LogOpportunityDetected logs one detected opportunity.
func (sl *ScanLogger) LogOpportunityDetected(opp *models.Opportunity) {
	sl.WithFields(logrus.Fields{
		"opportunity_id":       opp.ID.String(),
		"opportunity_type":     string(opp.Type),
		"game_id":              opp.GameID,
		"market_type":          string(opp.MarketType),
		"legs":                 len(opp.Legs),
		"profit_margin":        opp.ProfitMargin,
		"risk_adjusted_profit": opp.RiskAdjustedProfit,
		"sharpe_ratio":         opp.SharpeRatio,
		"confidence":           string(opp.Confidence),
	}).Info("Opportunity detected")
}

// LogProfileReload logs a book profile registry swap.
func (sl *ScanLogger) LogProfileReload(profileCount int, source string) {
	sl.WithFields(logrus.Fields{
		"profile_count": profileCount,
		"source":        source,
	}).Info("Book profiles reloaded")
}

// LogFeedDegradation logs a provider outage the scanner is riding out.
func (sl *ScanLogger) LogFeedDegradation(gameID, kind string, retryAfterSeconds float64) {
	sl.WithFields(logrus.Fields{
		"game_id":             gameID,
		"kind":                kind,
		"retry_after_seconds": retryAfterSeconds,
	}).Warn("Odds feed degraded")
}
