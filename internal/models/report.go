package models

import (
	"time"

	"github.com/google/uuid"
)

// GameScanResult holds one game's contribution to a scan cycle
type GameScanResult struct {
	GameID                string         `json:"game_id"`
	Opportunities         []*Opportunity `json:"opportunities"`
	StaleRejections       int            `json:"stale_rejections"`
	FalsePositivesAvoided int            `json:"false_positives_avoided"`
	QuotesProcessed       int            `json:"quotes_processed"`
	Err                   string         `json:"error,omitempty"`
}

// ScanReport summarizes one scan cycle across all games
type ScanReport struct {
	ScanID                uuid.UUID       `json:"scan_id"`
	StartedAt             time.Time       `json:"started_at"`
	CompletedAt           time.Time       `json:"completed_at"`
	GamesScanned          int             `json:"games_scanned"`
	GamesFailed           int             `json:"games_failed"`
	QuotesProcessed       int             `json:"quotes_processed"`
	TotalOpportunities    int             `json:"total_opportunities"`
	ArbitrageCount        int             `json:"arbitrage_count"`
	ValueCount            int             `json:"value_count"`
	StaleRejections       int             `json:"stale_rejections"`
	FalsePositivesAvoided int             `json:"false_positives_avoided"`
	AverageProfitMargin   float64         `json:"average_profit_margin"`
	Errors                map[string]string `json:"errors,omitempty"`
}

// NewScanReport creates an empty report for a scan cycle
func NewScanReport(startedAt time.Time) *ScanReport {
	return &ScanReport{
		ScanID:    uuid.New(),
		StartedAt: startedAt,
		Errors:    make(map[string]string),
	}
}

// Merge folds one game's result into the report. A failed game contributes
// only its error; partial results from it are discarded by the caller.
func (r *ScanReport) Merge(res *GameScanResult) {
	if res.Err != "" {
		r.GamesFailed++
		r.Errors[res.GameID] = res.Err
		return
	}

	r.GamesScanned++
	r.QuotesProcessed += res.QuotesProcessed
	r.StaleRejections += res.StaleRejections
	r.FalsePositivesAvoided += res.FalsePositivesAvoided

	for _, opp := range res.Opportunities {
		r.TotalOpportunities++
		switch opp.Type {
		case OpportunityTypeArbitrage:
			r.ArbitrageCount++
		case OpportunityTypeValue:
			r.ValueCount++
		}
		// Running mean over all merged opportunities.
		r.AverageProfitMargin += (opp.ProfitMargin - r.AverageProfitMargin) / float64(r.TotalOpportunities)
	}
}

// Duration returns the wall-clock length of the scan
func (r *ScanReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
