package office

import (
	"context"
	"fmt"
	"strings"
)

// maxSettingKey matches the key column width of the original settings table.
const maxSettingKey = 50

// Settings is the site key/value configuration.
type Settings struct {
	store SettingStore
}

func NewSettings(store SettingStore) *Settings {
	return &Settings{store: store}
}

func (s *Settings) Get(ctx context.Context, key string) (Setting, error) {
	v, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return Setting{}, fmt.Errorf("failed to load setting: %w", err)
	}
	if v == nil {
		return Setting{}, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return *v, nil
}

func (s *Settings) List(ctx context.Context) ([]Setting, error) {
	return s.store.ListSettings(ctx)
}

// Put creates or overwrites a setting.
func (s *Settings) Put(ctx context.Context, key, value string) (Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Setting{}, missing("key")
	}
	if len(key) > maxSettingKey {
		return Setting{}, &FieldError{Field: "key", Reason: fmt.Sprintf("longer than %d characters", maxSettingKey)}
	}
	v := Setting{Key: key, Value: value}
	if err := s.store.PutSetting(ctx, v); err != nil {
		return Setting{}, fmt.Errorf("failed to save setting: %w", err)
	}
	return v, nil
}

func (s *Settings) Delete(ctx context.Context, key string) error {
	return s.store.DeleteSetting(ctx, key)
}
