package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/edge-scanner/internal/database"
	"github.com/yourusername/edge-scanner/internal/models"
)

// PostgresSignalRepository implements SignalRepository for PostgreSQL
type PostgresSignalRepository struct {
	db *database.DB
}

// NewPostgresSignalRepository creates a new signal repository
func NewPostgresSignalRepository(db *database.DB) SignalRepository {
	return &PostgresSignalRepository{db: db}
}

// Create inserts a dispatched signal. Legs are stored as JSONB: they are
// written once and read whole, never queried field by field.
func (r *PostgresSignalRepository) Create(ctx context.Context, signal *models.HighValueSignal) error {
	legs, err := json.Marshal(signal.Legs)
	if err != nil {
		return fmt.Errorf("failed to marshal signal legs: %w", err)
	}

	query := `
		INSERT INTO high_value_signals (opportunity_id, signal_type, game_id, market_type,
		                                profit_margin, risk_adjusted_profit, sharpe_ratio,
		                                confidence, legs, detected_at, expires_at, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		signal.OpportunityID, signal.Type, signal.GameID, signal.MarketType,
		signal.ProfitMargin, signal.RiskAdjustedProfit, signal.SharpeRatio,
		signal.Confidence, legs, signal.DetectedAt, signal.ExpiresAt, signal.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

// GetByOpportunityID retrieves a signal by its opportunity ID
func (r *PostgresSignalRepository) GetByOpportunityID(ctx context.Context, id uuid.UUID) (*models.HighValueSignal, error) {
	query := `
		SELECT opportunity_id, signal_type, game_id, market_type, profit_margin,
		       risk_adjusted_profit, sharpe_ratio, confidence, legs,
		       detected_at, expires_at, dispatched_at
		FROM high_value_signals WHERE opportunity_id = $1
	`

	signal, err := scanSignal(r.db.GetPool().QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return signal, nil
}

// GetByGameID retrieves all signals dispatched for a game
func (r *PostgresSignalRepository) GetByGameID(ctx context.Context, gameID string) ([]*models.HighValueSignal, error) {
	query := `
		SELECT opportunity_id, signal_type, game_id, market_type, profit_margin,
		       risk_adjusted_profit, sharpe_ratio, confidence, legs,
		       detected_at, expires_at, dispatched_at
		FROM high_value_signals
		WHERE game_id = $1
		ORDER BY dispatched_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals by game: %w", err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

// GetDispatchedBetween retrieves signals dispatched in a time range
func (r *PostgresSignalRepository) GetDispatchedBetween(ctx context.Context, start, end time.Time) ([]*models.HighValueSignal, error) {
	query := `
		SELECT opportunity_id, signal_type, game_id, market_type, profit_margin,
		       risk_adjusted_profit, sharpe_ratio, confidence, legs,
		       detected_at, expires_at, dispatched_at
		FROM high_value_signals
		WHERE dispatched_at >= $1 AND dispatched_at <= $2
		ORDER BY dispatched_at DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals by range: %w", err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

// RecordCancellation records a signal cancelled between detection and
// dispatch, for false-positive accounting
func (r *PostgresSignalRepository) RecordCancellation(ctx context.Context, opportunityID uuid.UUID, gameID string, reason models.CancellationReason) error {
	query := `
		INSERT INTO signal_cancellations (opportunity_id, game_id, reason, cancelled_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.GetPool().Exec(ctx, query, opportunityID, gameID, string(reason), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*models.HighValueSignal, error) {
	signal := &models.HighValueSignal{}
	var legs []byte
	err := row.Scan(
		&signal.OpportunityID, &signal.Type, &signal.GameID, &signal.MarketType,
		&signal.ProfitMargin, &signal.RiskAdjustedProfit, &signal.SharpeRatio,
		&signal.Confidence, &legs, &signal.DetectedAt, &signal.ExpiresAt, &signal.DispatchedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(legs, &signal.Legs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal legs: %w", err)
	}
	return signal, nil
}

func collectSignals(rows pgx.Rows) ([]*models.HighValueSignal, error) {
	var signals []*models.HighValueSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, signal)
	}
	return signals, rows.Err()
}
