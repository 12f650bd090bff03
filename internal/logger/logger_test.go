package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edge-scanner/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func sampleReport() *models.ScanReport {
	report := models.NewScanReport(time.Now().Add(-2 * time.Second))
	report.CompletedAt = time.Now()
	report.GamesScanned = 12
	report.GamesFailed = 1
	report.TotalOpportunities = 3
	report.ArbitrageCount = 1
	report.ValueCount = 2
	report.StaleRejections = 4
	report.FalsePositivesAvoided = 2
	return report
}

func sampleSignal() *models.HighValueSignal {
	return &models.HighValueSignal{
		OpportunityID: uuid.New(),
		Type:          models.OpportunityTypeArbitrage,
		GameID:        "game_123",
		MarketType:    models.MarketTypeHeadToHead,
		ProfitMargin:  0.031,
		Confidence:    models.ConfidenceHigh,
		Legs: []models.AdjustedLeg{
			{Quote: models.OddsQuote{Book: "alpha"}},
			{Quote: models.OddsQuote{Book: "beta"}},
		},
		DispatchedAt: time.Now(),
	}
}

func TestScanLoggerCycle(t *testing.T) {
	log, buf := setupTestLogger()
	scanLogger := NewScanLogger(log)

	scanLogger.LogScanCycle(sampleReport())

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "scanner", logEntry["component"])
	assert.Equal(t, float64(12), logEntry["games_scanned"])
	assert.Equal(t, float64(3), logEntry["total_opportunities"])
}

func TestScanLoggerGameFailure(t *testing.T) {
	log, buf := setupTestLogger()
	scanLogger := NewScanLogger(log)

	scanLogger.LogGameScanFailure("scan_1", "game_123", "provider timeout")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "game_123", logEntry["game_id"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestScanLoggerOpportunityDetected(t *testing.T) {
	log, buf := setupTestLogger()
	scanLogger := NewScanLogger(log)

	opp := &models.Opportunity{
		ID:           uuid.New(),
		Type:         models.OpportunityTypeValue,
		GameID:       "game_123",
		MarketType:   models.MarketTypeTotal,
		ProfitMargin: 0.04,
		Confidence:   models.ConfidenceMedium,
	}
	scanLogger.LogOpportunityDetected(opp)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "VALUE", logEntry["opportunity_type"])
	assert.Equal(t, "medium", logEntry["confidence"])
}

func TestSignalLoggerDispatched(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogSignalDispatched(sampleSignal())

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "dispatch", logEntry["component"])
	assert.Equal(t, "game_123", logEntry["game_id"])
	assert.Equal(t, "ARBITRAGE", logEntry["signal_type"])
}

func TestSignalLoggerCancelled(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogSignalCancelled("opp_1", "game_123", models.CancelReasonOddsShifted)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "odds_shifted", logEntry["reason"])
}

func TestSignalLoggerFailOpenWarns(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogFailOpenDispatch("opp_1", "game_123", "connection reset")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "connection reset", logEntry["recheck_error"])
}

func TestSignalLoggerRecheckOutcome(t *testing.T) {
	log, buf := setupTestLogger()
	signalLogger := NewSignalLogger(log)

	signalLogger.LogRecheckOutcome("opp_1", false, models.CancelReasonStale, 41.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, false, logEntry["accepted"])
	assert.Equal(t, "stale", logEntry["reason"])
	assert.Equal(t, 41.5, logEntry["latency_ms"])
}

func TestLoggerJSONFormat(t *testing.T) {
	log, buf := setupTestLogger()
	scanLogger := NewScanLogger(log)

	scanLogger.LogScanCycle(sampleReport())

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	assert.NoError(t, err)
	assert.NotEmpty(t, logEntry)
}

func TestNewLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	log := NewLogger("nonsense", "development")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerProductionUsesJSONFormat(t *testing.T) {
	log := NewLogger("info", "production")
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNewLoggerDevelopmentUsesTextFormat(t *testing.T) {
	log := NewLogger("debug", "development")
	_, ok := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func BenchmarkScanLoggerCycle(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	scanLogger := NewScanLogger(log)
	report := sampleReport()

	for i := 0; i < b.N; i++ {
		scanLogger.LogScanCycle(report)
	}
}

func BenchmarkSignalLoggerDispatched(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	signalLogger := NewSignalLogger(log)
	signal := sampleSignal()

	for i := 0; i < b.N; i++ {
		signalLogger.LogSignalDispatched(signal)
	}
}
