package database

import (
	"context"
	"fmt"

	"github.com/yourusername/edge-scanner/internal/config"
)

// Initialize creates a database connection pool and verifies the signal
// schema is present
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// Verify migrations are applied by checking for the signals table.
	var exists bool
	err = db.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'high_value_signals')",
	).Scan(&exists)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema: %w", err)
	}
	if !exists {
		db.Close()
		return nil, fmt.Errorf("high_value_signals table not found; run database migrations first")
	}

	return db, nil
}
