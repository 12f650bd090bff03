package validator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edge-scanner/internal/models"
)

type fakeOracle struct {
	updates map[string]time.Time
}

func (f *fakeOracle) LastUpdateTime(book, gameID string, market models.MarketType) (time.Time, bool) {
	t, ok := f.updates[book]
	return t, ok
}

type fakeCross struct {
	correlated bool
	err        error
}

func (f *fakeCross) CorrelatedSignal(ctx context.Context, gameID string) (bool, error) {
	return f.correlated, f.err
}

type fakeFeed struct {
	quotes []models.OddsQuote
	err    error
}

func (f *fakeFeed) GetQuotes(ctx context.Context, gameID string, markets []models.MarketType) ([]models.OddsQuote, error) {
	return f.quotes, f.err
}

func testOpportunity(now time.Time) *models.Opportunity {
	return &models.Opportunity{
		ID:         uuid.New(),
		Type:       models.OpportunityTypeArbitrage,
		GameID:     "game-1",
		MarketType: models.MarketTypeHeadToHead,
		Legs: []models.AdjustedLeg{
			{
				Quote: models.OddsQuote{
					GameID:       "game-1",
					MarketType:   models.MarketTypeHeadToHead,
					Outcome:      "home",
					Book:         "book_a",
					AmericanOdds: 120,
					Timestamp:    now.Add(-10 * time.Second),
					Available:    true,
				},
				AdjustedDecimal:     2.2,
				AdjustedProbability: 1 / 2.2,
				ExecutionConfidence: 0.9,
			},
			{
				Quote: models.OddsQuote{
					GameID:       "game-1",
					MarketType:   models.MarketTypeHeadToHead,
					Outcome:      "away",
					Book:         "book_b",
					AmericanOdds: -105,
					Timestamp:    now.Add(-10 * time.Second),
					Available:    true,
				},
				AdjustedDecimal:     1.952,
				AdjustedProbability: 105.0 / 205.0,
				ExecutionConfidence: 0.9,
			},
		},
		ProfitMargin:       0.034,
		RiskAdjustedProfit: 0.025,
		Confidence:         models.ConfidenceHigh,
		DetectedAt:         now,
		ExpiresAt:          now.Add(300 * time.Second),
	}
}

func TestValidateAcceptsFreshProfitableOpportunity(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)

	res := v.Validate(context.Background(), testOpportunity(now), now)
	if !res.Accepted {
		t.Fatalf("rejected with reason %q", res.Reason)
	}
	if res.Opportunity.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %v", res.Opportunity.Confidence)
	}
}

func TestValidateRejectsStaleQuote(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)

	opp := testOpportunity(now)
	opp.Legs[0].Quote.Timestamp = now.Add(-5 * time.Minute)
	// High margin does not rescue a stale quote.
	opp.ProfitMargin = 0.5
	opp.RiskAdjustedProfit = 0.4

	res := v.Validate(context.Background(), opp, now)
	if res.Accepted {
		t.Fatal("stale opportunity accepted")
	}
	if res.Reason != models.CancelReasonStale {
		t.Errorf("reason = %q, want stale", res.Reason)
	}
}

func TestValidateUsesOracleUpdateTime(t *testing.T) {
	now := time.Now()
	oracle := &fakeOracle{updates: map[string]time.Time{
		// The book pushed an update long after this quote was taken.
		"book_a": now.Add(5 * time.Minute),
	}}
	v := NewValidator(DefaultConfig(), oracle, nil, nil)

	res := v.Validate(context.Background(), testOpportunity(now), now)
	if res.Accepted {
		t.Fatal("quote lagging the oracle update should be stale")
	}
	if res.Reason != models.CancelReasonStale {
		t.Errorf("reason = %q, want stale", res.Reason)
	}
}

func TestValidateRejectsExpiredEvenIfFresh(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)

	opp := testOpportunity(now)
	opp.ExpiresAt = now.Add(-1 * time.Second)
	for i := range opp.Legs {
		opp.Legs[i].Quote.Timestamp = now
	}

	res := v.Validate(context.Background(), opp, now)
	if res.Accepted {
		t.Fatal("expired opportunity accepted")
	}
	if res.Reason != models.CancelReasonExpired {
		t.Errorf("reason = %q, want expired", res.Reason)
	}
}

func TestValidateRejectsBelowMinProfit(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)

	opp := testOpportunity(now)
	opp.RiskAdjustedProfit = 0.001

	if res := v.Validate(context.Background(), opp, now); res.Accepted {
		t.Fatal("opportunity below minimum profit accepted")
	}
}

func TestValidateRejectsLowConfidence(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)

	opp := testOpportunity(now)
	opp.Confidence = models.ConfidenceLow

	if res := v.Validate(context.Background(), opp, now); res.Accepted {
		t.Fatal("low confidence opportunity accepted")
	}
}

func TestValidateCrossValidationDowngrades(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, &fakeCross{correlated: false}, nil)

	opp := testOpportunity(now)
	res := v.Validate(context.Background(), opp, now)
	if !res.Accepted {
		t.Fatalf("high confidence should survive one downgrade, reason %q", res.Reason)
	}
	if res.Opportunity.Confidence != models.ConfidenceMedium {
		t.Errorf("confidence = %v, want medium after downgrade", res.Opportunity.Confidence)
	}
	// Input must not be mutated.
	if opp.Confidence != models.ConfidenceHigh {
		t.Error("validator mutated the input opportunity")
	}

	// A medium opportunity downgrades to low and is rejected.
	opp = testOpportunity(now)
	opp.Confidence = models.ConfidenceMedium
	if res := v.Validate(context.Background(), opp, now); res.Accepted {
		t.Fatal("downgraded-to-low opportunity accepted")
	}
}

func TestFinalCheckOddsShifted(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)
	opp := testOpportunity(now)

	shifted := make([]models.OddsQuote, len(opp.Legs))
	for i, leg := range opp.Legs {
		q := leg.Quote
		q.Timestamp = now
		shifted[i] = q
	}
	// Move one book more than the 5-point tolerance.
	shifted[0].AmericanOdds = 110

	res := v.FinalCheck(context.Background(), opp, &fakeFeed{quotes: shifted}, now)
	if res.Accepted {
		t.Fatal("shifted odds accepted")
	}
	if res.Reason != models.CancelReasonOddsShifted {
		t.Errorf("reason = %q, want odds_shifted", res.Reason)
	}
}

func TestFinalCheckUnavailableMarket(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)
	opp := testOpportunity(now)

	quotes := make([]models.OddsQuote, len(opp.Legs))
	for i, leg := range opp.Legs {
		q := leg.Quote
		q.Timestamp = now
		quotes[i] = q
	}
	quotes[1].Available = false

	res := v.FinalCheck(context.Background(), opp, &fakeFeed{quotes: quotes}, now)
	if res.Accepted {
		t.Fatal("unavailable market accepted")
	}
	if res.Reason != models.CancelReasonUnavailable {
		t.Errorf("reason = %q, want unavailable", res.Reason)
	}
}

func TestFinalCheckFetchErrorReportsError(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)
	opp := testOpportunity(now)

	res := v.FinalCheck(context.Background(), opp, &fakeFeed{err: context.DeadlineExceeded}, now)
	if res.Accepted {
		t.Fatal("fetch error accepted")
	}
	if res.Reason != models.CancelReasonError {
		t.Errorf("reason = %q, want error", res.Reason)
	}
}

func TestFinalCheckExpiredBeforeFetch(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)
	opp := testOpportunity(now)
	opp.ExpiresAt = now.Add(-time.Second)

	// The feed would pass; expiration must still win.
	quotes := make([]models.OddsQuote, len(opp.Legs))
	for i, leg := range opp.Legs {
		q := leg.Quote
		q.Timestamp = now
		quotes[i] = q
	}

	res := v.FinalCheck(context.Background(), opp, &fakeFeed{quotes: quotes}, now)
	if res.Accepted {
		t.Fatal("expired opportunity passed final check")
	}
	if res.Reason != models.CancelReasonExpired {
		t.Errorf("reason = %q, want expired", res.Reason)
	}
}

func TestFinalCheckPassesWhenMarketHolds(t *testing.T) {
	now := time.Now()
	v := NewValidator(DefaultConfig(), nil, nil, nil)
	opp := testOpportunity(now)

	quotes := make([]models.OddsQuote, len(opp.Legs))
	for i, leg := range opp.Legs {
		q := leg.Quote
		q.Timestamp = now
		// Small move inside tolerance.
		q.AmericanOdds += 2
		quotes[i] = q
	}

	res := v.FinalCheck(context.Background(), opp, &fakeFeed{quotes: quotes}, now)
	if !res.Accepted {
		t.Fatalf("rejected with reason %q", res.Reason)
	}
}
