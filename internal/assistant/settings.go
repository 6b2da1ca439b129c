package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xaenox/jarvis/internal/models"
)

// SetSetting stores value under key, last write wins. The value is marshaled
// to JSON so callers can pass any serializable type.
func (s *Service) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %s: %w", key, err)
	}
	setting := &models.Setting{
		ID:        key,
		Key:       key,
		Value:     raw,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.PutSetting(ctx, setting); err != nil {
		return fmt.Errorf("saving setting %s: %w", key, err)
	}
	return nil
}

// GetSetting unmarshals the setting stored under key into out. Returns false
// when the key does not exist.
func (s *Service) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	setting, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return false, fmt.Errorf("loading setting %s: %w", key, err)
	}
	if setting == nil {
		return false, nil
	}
	if err := json.Unmarshal(setting.Value, out); err != nil {
		return false, fmt.Errorf("decoding setting %s: %w", key, err)
	}
	return true, nil
}
