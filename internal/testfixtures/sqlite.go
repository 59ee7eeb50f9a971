package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/fitclub-scheduler/internal/persistence"
	"github.com/example/fitclub-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Store    *sqlite.Store
	Events   persistence.EventRepository
	Trainers persistence.TrainerRepository
	Clients  persistence.ClientRepository
	Products persistence.ProductRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated store in the test's temporary directory.
// The harness closes with the test.
func NewSQLiteHarness(t *testing.T) *SQLiteHarness {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "fitclub-test.db")
	store, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate sqlite store: %v", err)
	}

	harness := &SQLiteHarness{
		Store:    store,
		Events:   sqlite.NewEventRepository(store),
		Trainers: sqlite.NewTrainerRepository(store),
		Clients:  sqlite.NewClientRepository(store),
		Products: sqlite.NewProductRepository(store),
		cleanup: func() {
			store.Close()
		},
	}
	t.Cleanup(harness.Close)
	return harness
}
