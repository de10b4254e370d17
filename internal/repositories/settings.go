package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
)

// SettingsKey is the KV key holding the JSON encoded settings record.
const SettingsKey = "settings"

// SettingsRepository stores [models.Settings] as one JSON document in the KV table.
type SettingsRepository struct {
	kv *KVRepository
}

// NewSettingsRepository creates a new SettingsRepository on top of kv
func NewSettingsRepository(kv *KVRepository) *SettingsRepository {
	return &SettingsRepository{kv: kv}
}

// Load returns the stored settings, or [models.DefaultSettings] when nothing has been saved.
func (r *SettingsRepository) Load(ctx context.Context) (models.Settings, error) {
	raw, err := r.kv.Get(ctx, SettingsKey)
	if errors.Is(err, shared.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}

	settings := models.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return models.Settings{}, fmt.Errorf("%w: failed to decode settings: %w", shared.ErrStorage, err)
	}
	return settings, nil
}

// Save replaces the stored settings.
func (r *SettingsRepository) Save(ctx context.Context, settings models.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return r.kv.Set(ctx, SettingsKey, raw)
}

// Update loads the settings, applies fn and saves the result unless fn fails.
func (r *SettingsRepository) Update(ctx context.Context, fn func(*models.Settings) error) (models.Settings, error) {
	settings, err := r.Load(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if err := fn(&settings); err != nil {
		return models.Settings{}, err
	}
	if err := r.Save(ctx, settings); err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}
