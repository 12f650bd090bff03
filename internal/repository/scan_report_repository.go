package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/edge-scanner/internal/database"
	"github.com/yourusername/edge-scanner/internal/models"
)

// PostgresScanReportRepository implements ScanReportRepository for PostgreSQL
type PostgresScanReportRepository struct {
	db *database.DB
}

// NewPostgresScanReportRepository creates a new scan report repository
func NewPostgresScanReportRepository(db *database.DB) ScanReportRepository {
	return &PostgresScanReportRepository{db: db}
}

// Create inserts a scan cycle report
func (r *PostgresScanReportRepository) Create(ctx context.Context, report *models.ScanReport) error {
	errors, err := json.Marshal(report.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal report errors: %w", err)
	}

	query := `
		INSERT INTO scan_reports (scan_id, started_at, completed_at, games_scanned, games_failed,
		                          quotes_processed, total_opportunities, arbitrage_count, value_count,
		                          stale_rejections, false_positives_avoided, average_profit_margin, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		report.ScanID, report.StartedAt, report.CompletedAt, report.GamesScanned, report.GamesFailed,
		report.QuotesProcessed, report.TotalOpportunities, report.ArbitrageCount, report.ValueCount,
		report.StaleRejections, report.FalsePositivesAvoided, report.AverageProfitMargin, errors,
	)
	if err != nil {
		return fmt.Errorf("failed to create scan report: %w", err)
	}
	return nil
}

// GetByID retrieves a scan report by scan ID
func (r *PostgresScanReportRepository) GetByID(ctx context.Context, scanID uuid.UUID) (*models.ScanReport, error) {
	query := `
		SELECT scan_id, started_at, completed_at, games_scanned, games_failed, quotes_processed,
		       total_opportunities, arbitrage_count, value_count, stale_rejections,
		       false_positives_avoided, average_profit_margin, errors
		FROM scan_reports WHERE scan_id = $1
	`

	report, err := scanReport(r.db.GetPool().QueryRow(ctx, query, scanID))
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}
	return report, nil
}

// GetRecent retrieves the most recent scan reports
func (r *PostgresScanReportRepository) GetRecent(ctx context.Context, limit int) ([]*models.ScanReport, error) {
	query := `
		SELECT scan_id, started_at, completed_at, games_scanned, games_failed, quotes_processed,
		       total_opportunities, arbitrage_count, value_count, stale_rejections,
		       false_positives_avoided, average_profit_margin, errors
		FROM scan_reports
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.ScanReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanReport(row rowScanner) (*models.ScanReport, error) {
	report := &models.ScanReport{}
	var errors []byte
	err := row.Scan(
		&report.ScanID, &report.StartedAt, &report.CompletedAt, &report.GamesScanned, &report.GamesFailed,
		&report.QuotesProcessed, &report.TotalOpportunities, &report.ArbitrageCount, &report.ValueCount,
		&report.StaleRejections, &report.FalsePositivesAvoided, &report.AverageProfitMargin, &errors,
	)
	if err != nil {
		return nil, err
	}
	if len(errors) > 0 {
		if err := json.Unmarshal(errors, &report.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report errors: %w", err)
		}
	}
	return report, nil
}
