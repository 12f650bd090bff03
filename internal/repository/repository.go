package repository

import (
	"fmt"

	"github.com/yourusername/edge-scanner/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Signal     SignalRepository
	ScanReport ScanReportRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Signal:     NewPostgresSignalRepository(db),
		ScanReport: NewPostgresScanReportRepository(db),
	}, nil
}
