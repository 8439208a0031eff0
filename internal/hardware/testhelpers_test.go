package hardware

import (
	"context"
	"testing"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-access/migrations"
)

// setupTestRepo opens an in-memory database with every migration applied.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.Source()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func newGPIO(name string, number int) *Device {
	return &Device{Name: name, Enabled: true, Spec: GPIOSpec{Number: number, Direction: DirectionOut}}
}

func mustCreate(t *testing.T, repo Repository, dev *Device) *Device {
	t.Helper()
	if err := repo.Create(context.Background(), dev); err != nil {
		t.Fatalf("Create(%s) error = %v", dev.Name, err)
	}
	return dev
}
