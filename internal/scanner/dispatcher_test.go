package scanner

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/validator"
)

type memSink struct {
	mu      sync.Mutex
	signals []*models.HighValueSignal
	err     error
}

func (s *memSink) Emit(_ context.Context, signal *models.HighValueSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.signals = append(s.signals, signal)
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.signals)
}

func verifiedOpportunity(now time.Time) *models.Opportunity {
	return &models.Opportunity{
		ID:         uuid.New(),
		Type:       models.OpportunityTypeArbitrage,
		GameID:     "g1",
		MarketType: models.MarketTypeHeadToHead,
		Legs: []models.AdjustedLeg{
			{Quote: h2hQuote("g1", "home", "alpha", 120, now)},
			{Quote: h2hQuote("g1", "away", "beta", -105, now)},
		},
		ProfitMargin:       0.03,
		RiskAdjustedProfit: 0.025,
		SharpeRatio:        3.0,
		Confidence:         models.ConfidenceHigh,
		TotalStake:         1000,
		DetectedAt:         now,
		ExpiresAt:          now.Add(5 * time.Minute),
	}
}

func newTestDispatcher(cfg DispatchConfig, f *stubFeed, sink SignalSink) *Dispatcher {
	logger := testLogger()
	v := validator.NewValidator(validator.DefaultConfig(), nil, nil, logger)
	return NewDispatcher(cfg, v, f, sink, logger)
}

func TestDispatchEmitsVerifiedSignal(t *testing.T) {
	now := time.Now()
	opp := verifiedOpportunity(now)
	f := &stubFeed{quotes: map[string][]models.OddsQuote{
		"g1": {
			h2hQuote("g1", "home", "alpha", 120, now),
			h2hQuote("g1", "away", "beta", -105, now),
		},
	}}
	sink := &memSink{}
	d := newTestDispatcher(DefaultDispatchConfig(), f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	require.Len(t, emitted, 1)
	assert.Equal(t, opp.ID, emitted[0].OpportunityID)
	assert.Equal(t, 1, sink.count())
	assert.False(t, emitted[0].DispatchedAt.IsZero())
}

func TestDispatchSuppressesDuplicateEdge(t *testing.T) {
	now := time.Now()
	f := &stubFeed{quotes: map[string][]models.OddsQuote{
		"g1": {
			h2hQuote("g1", "home", "alpha", 120, now),
			h2hQuote("g1", "away", "beta", -105, now),
		},
	}}
	sink := &memSink{}
	d := newTestDispatcher(DefaultDispatchConfig(), f, sink)

	first := d.Dispatch(context.Background(), []*models.Opportunity{verifiedOpportunity(now)})
	require.Len(t, first, 1)

	// A later cycle finds the same edge under a fresh opportunity ID.
	second := d.Dispatch(context.Background(), []*models.Opportunity{verifiedOpportunity(now)})
	assert.Empty(t, second)
	assert.Equal(t, 1, sink.count())
}

func TestDispatchCancelsOnOddsShift(t *testing.T) {
	now := time.Now()
	opp := verifiedOpportunity(now)
	f := &stubFeed{quotes: map[string][]models.OddsQuote{
		"g1": {
			h2hQuote("g1", "home", "alpha", 150, now), // moved 30 points
			h2hQuote("g1", "away", "beta", -105, now),
		},
	}}
	sink := &memSink{}
	d := newTestDispatcher(DefaultDispatchConfig(), f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	assert.Empty(t, emitted)
	assert.Equal(t, 0, sink.count())
}

func TestDispatchWritesCancellationAudit(t *testing.T) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	now := time.Now()
	opp := verifiedOpportunity(now)
	f := &stubFeed{quotes: map[string][]models.OddsQuote{
		"g1": {
			h2hQuote("g1", "home", "alpha", 150, now),
			h2hQuote("g1", "away", "beta", -105, now),
		},
	}}
	v := validator.NewValidator(validator.DefaultConfig(), nil, nil, log)
	d := NewDispatcher(DefaultDispatchConfig(), v, f, &memSink{}, log)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	assert.Empty(t, emitted)
	assert.Contains(t, buf.String(), `"component":"dispatch"`)
	assert.Contains(t, buf.String(), string(models.CancelReasonOddsShifted))
	assert.Contains(t, buf.String(), "Signal cancelled before dispatch")
}

func TestDispatchCancelsOnLegUnavailable(t *testing.T) {
	now := time.Now()
	opp := verifiedOpportunity(now)
	f := &stubFeed{quotes: map[string][]models.OddsQuote{
		"g1": {
			h2hQuote("g1", "home", "alpha", 120, now),
			// away leg gone from the refreshed book
		},
	}}
	sink := &memSink{}
	d := newTestDispatcher(DefaultDispatchConfig(), f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	assert.Empty(t, emitted)
}

func TestDispatchRetriesFetchErrorThenFailsClosed(t *testing.T) {
	now := time.Now()
	opp := verifiedOpportunity(now)
	f := &stubFeed{errs: map[string]error{"g1": errors.New("connection reset")}}
	sink := &memSink{}

	cfg := DefaultDispatchConfig()
	cfg.RecheckRetries = 1
	d := newTestDispatcher(cfg, f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	assert.Empty(t, emitted)
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 2, f.calls, "expected one retry after the first fetch error")
}

func TestDispatchFailOpenOnHighConfidence(t *testing.T) {
	now := time.Now()
	f := &stubFeed{errs: map[string]error{"g1": errors.New("connection reset")}}
	sink := &memSink{}

	cfg := DefaultDispatchConfig()
	cfg.FailOpenHighConfidence = true
	d := newTestDispatcher(cfg, f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{verifiedOpportunity(now)})

	require.Len(t, emitted, 1)
	assert.Equal(t, 1, sink.count())
}

func TestDispatchFailOpenDoesNotCoverMediumConfidence(t *testing.T) {
	now := time.Now()
	opp := verifiedOpportunity(now)
	opp.Confidence = models.ConfidenceMedium
	f := &stubFeed{errs: map[string]error{"g1": errors.New("connection reset")}}
	sink := &memSink{}

	cfg := DefaultDispatchConfig()
	cfg.FailOpenHighConfidence = true
	d := newTestDispatcher(cfg, f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	assert.Empty(t, emitted)
}

func TestDispatchSinkFailureDropsSignal(t *testing.T) {
	now := time.Now()
	opp := verifiedOpportunity(now)
	f := &stubFeed{quotes: map[string][]models.OddsQuote{
		"g1": {
			h2hQuote("g1", "home", "alpha", 120, now),
			h2hQuote("g1", "away", "beta", -105, now),
		},
	}}
	sink := &memSink{err: errors.New("broker down")}
	d := newTestDispatcher(DefaultDispatchConfig(), f, sink)

	emitted := d.Dispatch(context.Background(), []*models.Opportunity{opp})

	assert.Empty(t, emitted)
}
