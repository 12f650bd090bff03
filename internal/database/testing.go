package database

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/edge-scanner/internal/config"
)

// SetupTestDB creates a test database connection and verifies it. Tests
// that call it are skipped when no test database is configured.
func SetupTestDB(t *testing.T) *DB {
	cfg, err := config.LoadWithDefaults("../../config/config.test.yaml")
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}
	if !cfg.Database.Enabled {
		t.Skip("test database not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	return db
}

// TeardownTestDB closes the database connection cleanly
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}
