package tasks

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/mietzen/catch-all-autofill/internal/backup"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/repositories"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// fixture wires real SQLite stores for task tests.
type fixture struct {
	db       *sql.DB
	settings *repositories.SettingsRepository
	usage    *repositories.UsageLogRepository
	backups  *backup.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	settings := repositories.NewSettingsRepository(repositories.NewKVRepository(db))
	usage := repositories.NewUsageLogRepository(db)
	return &fixture{
		db:       db,
		settings: settings,
		usage:    usage,
		backups:  backup.NewService(settings, usage, nil, shared.NewLogger(io.Discard)),
	}
}

func (f *fixture) configure(t *testing.T, fn func(*models.Settings)) {
	t.Helper()
	if _, err := f.settings.Update(context.Background(), func(s *models.Settings) error {
		fn(s)
		return nil
	}); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
}
