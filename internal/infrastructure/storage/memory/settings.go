package memory

import (
	"context"

	"growermarket/internal/core/settings"
)

// SettingsSource implements settings.Source.
type SettingsSource struct {
	store *Store
}

var _ settings.Source = (*SettingsSource)(nil)

// NewSettingsSource creates a settings source over s.
func NewSettingsSource(s *Store) *SettingsSource {
	return &SettingsSource{store: s}
}

// Lookup implements settings.Source.
func (src *SettingsSource) Lookup(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := src.store.exec(ctx, func(t *tables) error {
		value, found = t.settings[key]
		return nil
	})
	return value, found, err
}
