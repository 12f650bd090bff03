package models

import (
	"fmt"
	"time"
)

// MarketType represents the type of betting market
type MarketType string

const (
	MarketTypeHeadToHead MarketType = "H2H"
	MarketTypeSpread     MarketType = "SPREAD"
	MarketTypeTotal      MarketType = "TOTAL"
	MarketTypeThreeWay   MarketType = "THREE_WAY"
)

// AllMarketTypes lists every supported market type
var AllMarketTypes = []MarketType{
	MarketTypeHeadToHead,
	MarketTypeSpread,
	MarketTypeTotal,
	MarketTypeThreeWay,
}

// OutcomeCount returns the number of outcomes the market settles over
func (m MarketType) OutcomeCount() int {
	if m == MarketTypeThreeWay {
		return 3
	}
	return 2
}

// OddsQuote represents one book's price for one outcome of one market
type OddsQuote struct {
	GameID       string     `json:"game_id" validate:"required"`
	MarketType   MarketType `json:"market_type" validate:"required"`
	Outcome      string     `json:"outcome" validate:"required"`
	Book         string     `json:"book" validate:"required"`
	AmericanOdds float64    `json:"american_odds"`
	Timestamp    time.Time  `json:"timestamp" validate:"required"`
	Available    bool       `json:"available"`
}

// Age returns how long ago the quote was produced
func (q *OddsQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

// MarketKey returns the game/market identifier the quote belongs to
func (q *OddsQuote) MarketKey() string {
	return fmt.Sprintf("%s:%s", q.GameID, q.MarketType)
}

// Key uniquely identifies the quote's book/market/outcome slot
func (q *OddsQuote) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", q.Book, q.GameID, q.MarketType, q.Outcome)
}
