package account

import (
	"context"
	"fmt"
	"time"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
	"github.com/celiscope/celiscope/internal/store"
)

// Settings manages notification settings.
type Settings struct {
	repo store.Repository
	now  func() time.Time
}

// NewSettings creates a settings service.
func NewSettings(repo store.Repository) *Settings {
	return &Settings{repo: repo, now: time.Now}
}

// Get returns the user's settings, creating the defaults on first read.
func (s *Settings) Get(ctx context.Context, userID string) (*domain.NotificationSettings, error) {
	ns, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if ns != nil {
		return ns, nil
	}
	ns = domain.DefaultNotificationSettings(userID, s.now())
	if err := s.repo.UpsertSettings(ctx, ns); err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return ns, nil
}

// Update applies a validated patch to the user's settings.
func (s *Settings) Update(ctx context.Context, userID string, patch domain.NotificationSettingsPatch) (*domain.NotificationSettings, error) {
	if err := shared.Validate(patch); err != nil {
		return nil, err
	}
	ns, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	patch.Apply(ns)
	if err := s.repo.UpsertSettings(ctx, ns); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return ns, nil
}
