// Package scanner orchestrates discrepancy detection across games: it
// pulls quotes, applies execution costs, runs the arbitrage and value
// detectors, and validates what they find.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/arbitrage"
	"github.com/yourusername/edge-scanner/internal/book"
	"github.com/yourusername/edge-scanner/internal/execution"
	"github.com/yourusername/edge-scanner/internal/feed"
	"github.com/yourusername/edge-scanner/internal/logger"
	"github.com/yourusername/edge-scanner/internal/metrics"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/validator"
	"github.com/yourusername/edge-scanner/internal/value"
)

// Config holds scanner orchestration parameters
type Config struct {
	Workers     int                 `mapstructure:"workers" validate:"gte=0"`
	MarketTypes []models.MarketType `mapstructure:"market_types" validate:"required,min=1"`
}

// DefaultConfig returns standard scanner parameters
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		MarketTypes: models.AllMarketTypes,
	}
}

// Scanner runs the detection pipeline across many games concurrently
type Scanner struct {
	cfg       Config
	oddsFeed  feed.OddsFeed
	registry  *book.Registry
	costModel *execution.CostModel
	arbEngine *arbitrage.Engine
	detector  *value.Detector
	validator *validator.Validator
	logger    *logrus.Logger
	scanLog   *logger.ScanLogger
}

// NewScanner wires the detection pipeline together
func NewScanner(
	cfg Config,
	oddsFeed feed.OddsFeed,
	registry *book.Registry,
	costModel *execution.CostModel,
	arbEngine *arbitrage.Engine,
	detector *value.Detector,
	signalValidator *validator.Validator,
	baseLogger *logrus.Logger,
) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if len(cfg.MarketTypes) == 0 {
		cfg.MarketTypes = models.AllMarketTypes
	}
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	return &Scanner{
		cfg:       cfg,
		oddsFeed:  oddsFeed,
		registry:  registry,
		costModel: costModel,
		arbEngine: arbEngine,
		detector:  detector,
		validator: signalValidator,
		logger:    baseLogger,
		scanLog:   logger.NewScanLogger(baseLogger),
	}
}

// Scan processes the given games through a bounded worker pool and returns
// the cycle report plus every opportunity that survived validation. One
// game's failure never aborts the scan; a cancelled game is excluded
// entirely rather than partially merged.
func (s *Scanner) Scan(ctx context.Context, gameIDs []string) (*models.ScanReport, []*models.Opportunity) {
	started := time.Now()
	report := models.NewScanReport(started)

	jobs := make(chan string)
	results := make(chan *models.GameScanResult)

	var wg sync.WaitGroup
	workers := s.cfg.Workers
	if workers > len(gameIDs) && len(gameIDs) > 0 {
		workers = len(gameIDs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for gameID := range jobs {
				metrics.ActiveScanWorkers.Inc()
				res := s.scanGame(ctx, gameID)
				metrics.ActiveScanWorkers.Dec()
				if res == nil {
					continue // cancelled mid-game, fully excluded
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, gameID := range gameIDs {
			select {
			case <-ctx.Done():
				return
			case jobs <- gameID:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var accepted []*models.Opportunity
	for res := range results {
		report.Merge(res)
		if res.Err != "" {
			// A failed game counts only as a failure; anything it
			// detected before failing never reaches dispatch.
			s.scanLog.LogGameScanFailure(report.ScanID.String(), res.GameID, res.Err)
			continue
		}
		accepted = append(accepted, res.Opportunities...)
	}

	report.CompletedAt = time.Now()
	metrics.RecordScanCycle(report.Duration().Seconds(), report.TotalOpportunities)
	metrics.RegisteredBookProfiles.Set(float64(s.registry.Len()))

	s.scanLog.LogScanCycle(report)

	return report, accepted
}

// scanGame runs the full pipeline for one game. Returns nil when the scan
// was cancelled so the game is excluded rather than half-counted.
func (s *Scanner) scanGame(ctx context.Context, gameID string) *models.GameScanResult {
	res := &models.GameScanResult{GameID: gameID}

	quotes, err := s.oddsFeed.GetQuotes(ctx, gameID, s.cfg.MarketTypes)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if feed.IsSkippable(err) {
			kind, retryAfter := feedErrorKind(err)
			s.scanLog.LogFeedDegradation(gameID, kind, retryAfter)
			metrics.RecordFeedError(kind)
		} else {
			s.logger.WithError(err).WithField("game_id", gameID).Error("Odds fetch failed")
			metrics.RecordGameScanError()
		}
		res.Err = err.Error()
		return res
	}
	res.QuotesProcessed = len(quotes)

	for _, marketType := range s.cfg.MarketTypes {
		marketQuotes := filterMarket(quotes, marketType)
		if len(marketQuotes) == 0 {
			continue
		}

		legs, profiles, err := s.adjustQuotes(marketQuotes)
		if err != nil {
			// Corrupt odds poison every downstream number: surface the
			// failure for the whole game instead of defaulting.
			if ctx.Err() != nil {
				return nil
			}
			s.logger.WithError(err).WithFields(logrus.Fields{
				"game_id":     gameID,
				"market_type": marketType,
			}).Error("Execution cost adjustment failed")
			metrics.RecordGameScanError()
			res.Err = err.Error()
			res.Opportunities = nil
			return res
		}

		candidates := s.detectMarket(marketType, legs, profiles)
		for _, opp := range candidates {
			if ctx.Err() != nil {
				return nil
			}
			vres := s.validator.Validate(ctx, opp, time.Now())
			if vres.Accepted {
				res.Opportunities = append(res.Opportunities, vres.Opportunity)
				s.scanLog.LogOpportunityDetected(vres.Opportunity)
				metrics.RecordOpportunity(string(vres.Opportunity.Type), vres.Opportunity.ProfitMargin)
				continue
			}
			switch {
			case vres.Reason == models.CancelReasonStale:
				res.StaleRejections++
				metrics.RecordStaleRejection()
			case vres.Reason.IsFalsePositiveSuppression():
				res.FalsePositivesAvoided++
				metrics.RecordFalsePositiveAvoided()
			}
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return res
}

// adjustQuotes runs the cost model over every quote in a market. A first
// pass uses an even stake split; legs that end up in an arbitrage get
// re-adjusted at their allocated stakes inside detectMarket.
func (s *Scanner) adjustQuotes(quotes []models.OddsQuote) ([]models.AdjustedLeg, map[string]book.Profile, error) {
	provisional := s.arbEngine.Config().TotalStake / float64(quotes[0].MarketType.OutcomeCount())

	legs := make([]models.AdjustedLeg, 0, len(quotes))
	profiles := make(map[string]book.Profile)
	for _, quote := range quotes {
		profile := s.registry.Get(quote.Book)
		leg, err := s.costModel.Adjust(quote, profile, profile.ClampStake(provisional))
		if err != nil {
			return nil, nil, fmt.Errorf("adjusting %s: %w", quote.Key(), err)
		}
		legs = append(legs, leg)
		profiles[quote.Book] = profile
	}
	return legs, profiles, nil
}

// detectMarket runs both detectors over one market's adjusted legs
func (s *Scanner) detectMarket(marketType models.MarketType, legs []models.AdjustedLeg, profiles map[string]book.Profile) []*models.Opportunity {
	var opps []*models.Opportunity

	if arb := s.detectArbitrage(marketType, legs, profiles); arb != nil {
		opps = append(opps, arb)
	}

	for _, outcomeLegs := range groupByOutcome(legs) {
		opps = append(opps, s.detector.Detect(outcomeLegs)...)
	}
	return opps
}

// detectArbitrage picks the best available leg per outcome from distinct
// books and hands the cover to the engine. Detection runs twice: stakes
// allocated by the first pass feed a re-adjustment so market impact
// reflects what would actually be staked.
func (s *Scanner) detectArbitrage(marketType models.MarketType, legs []models.AdjustedLeg, profiles map[string]book.Profile) *models.Opportunity {
	cover := bestCover(legs)
	if len(cover) < marketType.OutcomeCount() {
		return nil
	}

	coverProfiles := make([]book.Profile, len(cover))
	for i, leg := range cover {
		coverProfiles[i] = profiles[leg.Quote.Book]
	}

	first := s.arbEngine.DetectNWay(cover, coverProfiles)
	if first == nil {
		return nil
	}

	// Re-adjust each leg at its allocated stake and re-run detection; the
	// allocation may push a leg over its book's impact threshold.
	refined := make([]models.AdjustedLeg, len(first.Legs))
	for i, leg := range first.Legs {
		profile := coverProfiles[i]
		readjusted, err := s.costModel.Adjust(leg.Quote, profile, leg.StakeAmount)
		if err != nil {
			return nil
		}
		refined[i] = readjusted
	}
	return s.arbEngine.DetectNWay(refined, coverProfiles)
}

// bestCover selects, per outcome, the highest-paying available leg under
// the constraint that every selected leg comes from a different book.
// Outcomes are filled in order of how much choosing greedily costs them.
func bestCover(legs []models.AdjustedLeg) []models.AdjustedLeg {
	byOutcome := groupByOutcome(legs)

	outcomes := make([]string, 0, len(byOutcome))
	for outcome := range byOutcome {
		outcomes = append(outcomes, outcome)
	}

	usedBooks := make(map[string]bool)
	cover := make([]models.AdjustedLeg, 0, len(outcomes))

	// Greedy with the fewest-options outcome first so a book conflict on
	// a thin outcome doesn't starve it.
	for len(outcomes) > 0 {
		idx := -1
		minOptions := 0
		for i, outcome := range outcomes {
			options := 0
			for _, leg := range byOutcome[outcome] {
				if leg.Quote.Available && !usedBooks[leg.Quote.Book] {
					options++
				}
			}
			if idx == -1 || options < minOptions {
				idx, minOptions = i, options
			}
		}

		outcome := outcomes[idx]
		outcomes = append(outcomes[:idx], outcomes[idx+1:]...)

		var best *models.AdjustedLeg
		for i := range byOutcome[outcome] {
			leg := &byOutcome[outcome][i]
			if !leg.Quote.Available || usedBooks[leg.Quote.Book] {
				continue
			}
			if best == nil || leg.AdjustedDecimal > best.AdjustedDecimal {
				best = leg
			}
		}
		if best == nil {
			continue
		}
		usedBooks[best.Quote.Book] = true
		cover = append(cover, *best)
	}
	return cover
}

func filterMarket(quotes []models.OddsQuote, marketType models.MarketType) []models.OddsQuote {
	var filtered []models.OddsQuote
	for _, q := range quotes {
		if q.MarketType == marketType {
			filtered = append(filtered, q)
		}
	}
	return filtered
}

func groupByOutcome(legs []models.AdjustedLeg) map[string][]models.AdjustedLeg {
	grouped := make(map[string][]models.AdjustedLeg)
	for _, leg := range legs {
		grouped[leg.Quote.Outcome] = append(grouped[leg.Quote.Outcome], leg)
	}
	return grouped
}

func feedErrorKind(err error) (kind string, retryAfterSeconds float64) {
	var rateLimited *feed.RateLimitedError
	if errors.As(err, &rateLimited) {
		return "rate_limited", rateLimited.RetryAfter.Seconds()
	}
	return "unavailable", 0
}
