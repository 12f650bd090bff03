// Package repository provides data access for dispatched signals and scan
// reports.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/edge-scanner/internal/models"
)

// SignalRepository defines the interface for dispatched signal persistence
type SignalRepository interface {
	Create(ctx context.Context, signal *models.HighValueSignal) error
	GetByOpportunityID(ctx context.Context, id uuid.UUID) (*models.HighValueSignal, error)
	GetByGameID(ctx context.Context, gameID string) ([]*models.HighValueSignal, error)
	GetDispatchedBetween(ctx context.Context, start, end time.Time) ([]*models.HighValueSignal, error)
	RecordCancellation(ctx context.Context, opportunityID uuid.UUID, gameID string, reason models.CancellationReason) error
}

// ScanReportRepository defines the interface for scan cycle report persistence
type ScanReportRepository interface {
	Create(ctx context.Context, report *models.ScanReport) error
	GetByID(ctx context.Context, scanID uuid.UUID) (*models.ScanReport, error)
	GetRecent(ctx context.Context, limit int) ([]*models.ScanReport, error)
}
