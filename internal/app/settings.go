package app

import (
	"context"
	"errors"
	"fmt"

	"finance_automation/internal/domain/notification"
	idb "finance_automation/internal/infra/database"
)

// SettingsSource resolves a user's notification settings. Users without a row get
// notification.DefaultSettings.
type SettingsSource interface {
	Settings(ctx context.Context, userID int64) (*notification.Settings, error)
}

// RepositorySettings reads settings straight from the notification repository.
type RepositorySettings struct {
	repo notification.Repository
}

func NewRepositorySettings(repo notification.Repository) *RepositorySettings {
	return &RepositorySettings{repo: repo}
}

func (s *RepositorySettings) Settings(ctx context.Context, userID int64) (*notification.Settings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, idb.ErrSettingsNotFound) {
			return notification.DefaultSettings(userID), nil
		}
		return nil, fmt.Errorf("failed to load notification settings for user %d: %w", userID, err)
	}
	return settings, nil
}
