package scanner

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/edge-scanner/internal/feed"
	"github.com/yourusername/edge-scanner/internal/logger"
	"github.com/yourusername/edge-scanner/internal/metrics"
	"github.com/yourusername/edge-scanner/internal/models"
	"github.com/yourusername/edge-scanner/internal/validator"
)

// SignalSink receives dispatched signals. Implementations must tolerate
// concurrent calls.
type SignalSink interface {
	Emit(ctx context.Context, signal *models.HighValueSignal) error
}

// SinkFunc adapts a function to the SignalSink interface
type SinkFunc func(ctx context.Context, signal *models.HighValueSignal) error

func (f SinkFunc) Emit(ctx context.Context, signal *models.HighValueSignal) error {
	return f(ctx, signal)
}

// DispatchConfig holds pre-dispatch verification parameters
type DispatchConfig struct {
	// RecheckTimeout bounds each final verification round trip.
	RecheckTimeout time.Duration `mapstructure:"recheck_timeout" validate:"gt=0"`
	// RecheckRetries is how many extra attempts a transient fetch error gets.
	RecheckRetries int `mapstructure:"recheck_retries" validate:"gte=0"`
	// DedupWindow suppresses repeat signals for the same market edge.
	DedupWindow time.Duration `mapstructure:"dedup_window" validate:"gt=0"`
	// FailOpenHighConfidence dispatches high-confidence signals even when
	// the re-check infrastructure itself fails. Off unless set, and
	// rejected outright in production config.
	FailOpenHighConfidence bool `mapstructure:"fail_open_high_confidence"`
	// MaxConcurrent bounds the verification fan-out.
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0"`
}

// DefaultDispatchConfig returns standard dispatch parameters
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		RecheckTimeout:         4 * time.Second,
		RecheckRetries:         1,
		DedupWindow:            5 * time.Minute,
		FailOpenHighConfidence: false,
		MaxConcurrent:          8,
	}
}

// Dispatcher re-verifies validated opportunities against live odds and
// emits the survivors as high-value signals
type Dispatcher struct {
	cfg       DispatchConfig
	validator *validator.Validator
	oddsFeed  feed.OddsFeed
	sink      SignalSink
	seen      *gocache.Cache
	logger    *logrus.Logger
	audit     *logger.SignalLogger
}

// NewDispatcher creates a dispatcher emitting to the given sink
func NewDispatcher(cfg DispatchConfig, v *validator.Validator, oddsFeed feed.OddsFeed, sink SignalSink, baseLogger *logrus.Logger) *Dispatcher {
	if cfg.RecheckTimeout <= 0 {
		cfg.RecheckTimeout = 4 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 5 * time.Minute
	}
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	return &Dispatcher{
		cfg:       cfg,
		validator: v,
		oddsFeed:  oddsFeed,
		sink:      sink,
		seen:      gocache.New(cfg.DedupWindow, 2*cfg.DedupWindow),
		logger:    baseLogger,
		audit:     logger.NewSignalLogger(baseLogger),
	}
}

// Dispatch runs the final verification fan-out. Each opportunity is
// re-checked against freshly fetched odds under its own timeout; only
// verified, non-duplicate signals reach the sink. Returns the signals
// that were emitted.
func (d *Dispatcher) Dispatch(ctx context.Context, opps []*models.Opportunity) []*models.HighValueSignal {
	sem := make(chan struct{}, d.cfg.MaxConcurrent)
	var (
		mu      sync.Mutex
		emitted []*models.HighValueSignal
		wg      sync.WaitGroup
	)

	for _, opp := range opps {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(opp *models.Opportunity) {
			defer wg.Done()
			defer func() { <-sem }()

			signal := d.dispatchOne(ctx, opp)
			if signal == nil {
				return
			}
			mu.Lock()
			emitted = append(emitted, signal)
			mu.Unlock()
		}(opp)
	}
	wg.Wait()
	return emitted
}

func (d *Dispatcher) dispatchOne(ctx context.Context, opp *models.Opportunity) *models.HighValueSignal {
	log := d.logger.WithFields(logrus.Fields{
		"opportunity_id": opp.ID,
		"game_id":        opp.GameID,
		"type":           opp.Type,
	})

	key := dedupKey(opp)
	if _, dup := d.seen.Get(key); dup {
		log.Debug("Duplicate signal suppressed")
		metrics.RecordCancellation(string(models.CancelReasonDuplicate))
		return nil
	}

	res := d.recheck(ctx, opp)
	if !res.Accepted {
		if res.Reason == models.CancelReasonError && d.cfg.FailOpenHighConfidence && opp.Confidence == models.ConfidenceHigh {
			d.audit.LogFailOpenDispatch(opp.ID.String(), opp.GameID, res.Detail)
		} else {
			d.audit.LogSignalCancelled(opp.ID.String(), opp.GameID, res.Reason)
			metrics.RecordCancellation(string(res.Reason))
			return nil
		}
	}

	verified := opp
	if res.Accepted && res.Opportunity != nil {
		verified = res.Opportunity
	}

	signal := models.NewHighValueSignal(verified, time.Now())
	if err := d.sink.Emit(ctx, signal); err != nil {
		log.WithError(err).Error("Signal emission failed")
		metrics.RecordCancellation(string(models.CancelReasonError))
		return nil
	}

	d.seen.Set(key, struct{}{}, gocache.DefaultExpiration)
	metrics.RecordDispatch()
	d.audit.LogSignalDispatched(signal)
	return signal
}

// recheck runs FinalCheck under the configured timeout, retrying only
// transient fetch errors. A substantive rejection never retries.
func (d *Dispatcher) recheck(ctx context.Context, opp *models.Opportunity) validator.Result {
	var res validator.Result
	for attempt := 0; attempt <= d.cfg.RecheckRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.RecheckTimeout)
		started := time.Now()
		res = d.validator.FinalCheck(attemptCtx, opp, d.oddsFeed, time.Now())
		latency := time.Since(started)
		metrics.RecordRecheckLatency(latency.Seconds())
		d.audit.LogRecheckOutcome(opp.ID.String(), res.Accepted, res.Reason, latency.Seconds()*1000)
		cancel()

		if res.Accepted || res.Reason != models.CancelReasonError || ctx.Err() != nil {
			return res
		}
	}
	return res
}

// dedupKey identifies a market edge independent of which scan cycle found
// it: same game, market, type, and participating books.
func dedupKey(opp *models.Opportunity) string {
	books := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		books = append(books, strings.ToLower(leg.Quote.Book))
	}
	sort.Strings(books)
	return opp.GameID + ":" + string(opp.MarketType) + ":" + string(opp.Type) + ":" + strings.Join(books, ",")
}
