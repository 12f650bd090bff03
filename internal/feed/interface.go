// Package feed defines the external odds-feed collaborators and their
// transport implementations. The detection core only ever sees these
// interfaces, so it can be tested with fakes.
package feed

import (
	"context"
	"time"

	"github.com/yourusername/edge-scanner/internal/models"
)

// OddsFeed supplies per-book quotes for a game's markets. A failed fetch
// means "no data for this game this cycle", never a scan abort.
type OddsFeed interface {
	GetQuotes(ctx context.Context, gameID string, marketTypes []models.MarketType) ([]models.OddsQuote, error)
}

// LatencyOracle reports the latest known update time for a book's market.
// Implementations may return ok=false when no record exists; callers fall
// back to the quote's own timestamp.
type LatencyOracle interface {
	LastUpdateTime(book, gameID string, marketType models.MarketType) (time.Time, bool)
}

// CrossValidationSignal is an independent discrepancy detector consulted
// before dispatch. A contradiction downgrades confidence one level.
type CrossValidationSignal interface {
	CorrelatedSignal(ctx context.Context, gameID string) (bool, error)
}
