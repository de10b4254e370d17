package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// UnknownDomain replaces empty site domains during the version 2 upgrade.
const UnknownDomain = "unknown"

// DataMigration upgrades persisted data to Version.
type DataMigration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, m *DataMigrator) error
}

// DataMigrations lists the upgrades in ascending version order.
var DataMigrations = []DataMigration{
	{
		Version: 2,
		Name:    "backfill usage timestamps and domains",
		Apply: func(ctx context.Context, m *DataMigrator) error {
			n, err := m.usage.Backfill(ctx, models.FormatTimestamp(m.now()), UnknownDomain)
			if err != nil {
				return err
			}
			if n > 0 {
				m.logger.Info("backfilled usage records", "count", n)
			}
			return nil
		},
	},
}

// DataMigrator applies [DataMigrations] newer than the stored data version.
type DataMigrator struct {
	settings *SettingsRepository
	usage    *UsageLogRepository
	logger   *log.Logger
	now      func() time.Time
}

// NewDataMigrator creates a migrator over the settings and usage log stores.
func NewDataMigrator(settings *SettingsRepository, usage *UsageLogRepository, logger *log.Logger) *DataMigrator {
	return &DataMigrator{settings: settings, usage: usage, logger: logger, now: time.Now}
}

// Migrate runs pending upgrades in order, then records [models.DataVersion] and an installation id.
// Running it again is a no-op.
func (m *DataMigrator) Migrate(ctx context.Context) (from, to int, err error) {
	settings, err := m.settings.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	from = settings.DataVersion

	for _, migration := range DataMigrations {
		if migration.Version <= settings.DataVersion {
			continue
		}

		m.logger.Info("applying data migration", "version", migration.Version, "name", migration.Name)
		if err := migration.Apply(ctx, m); err != nil {
			return from, settings.DataVersion, fmt.Errorf("data migration %d failed: %w", migration.Version, err)
		}
		settings.DataVersion = migration.Version
	}

	changed := from != settings.DataVersion
	if settings.DataVersion < models.DataVersion {
		settings.DataVersion = models.DataVersion
		changed = true
	}
	if settings.InstallationID == "" {
		settings.InstallationID = shared.GenerateID()
		changed = true
	}

	if changed {
		if err := m.settings.Save(ctx, settings); err != nil {
			return from, settings.DataVersion, err
		}
	}
	return from, settings.DataVersion, nil
}
