// Package account implements user profiles, friendships and notification
// settings.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/media"
	"github.com/celiscope/celiscope/internal/shared"
	"github.com/celiscope/celiscope/internal/store"
)

const qrSize = 256

// ProfileInput holds the editable profile fields. Nil fields are kept.
type ProfileInput struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=64"`
	LastName  *string `json:"lastName" validate:"omitempty,max=64"`
	Username  *string `json:"username" validate:"omitempty,max=64"`
}

// Service manages user profiles.
type Service struct {
	repo        store.Repository
	storage     media.Storage
	botUsername string
	now         func() time.Time
}

// NewService creates a profile service. botUsername is used for invite
// links.
func NewService(repo store.Repository, storage media.Storage, botUsername string) *Service {
	return &Service{repo: repo, storage: storage, botUsername: botUsername, now: time.Now}
}

// Me returns the user's profile.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, shared.NotFound("Пользователь не найден")
	}
	return u, nil
}

// Edit updates the user's names.
func (s *Service) Edit(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	if err := shared.Validate(in); err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Username != nil {
		u.Username = *in.Username
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// SetPhoto replaces the user's photo. The previous object is deleted
// first; a failed delete is logged and ignored.
func (s *Service) SetPhoto(ctx context.Context, userID string, data []byte, mimetype string) (*domain.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	jpeg, err := media.ToJPEG(data, mimetype)
	if err != nil {
		return nil, err
	}

	if u.PhotoURL != "" {
		if err := s.storage.Delete(ctx, media.KeyFromURL(u.PhotoURL)); err != nil {
			slog.Warn("Failed to delete old photo", "user_id", userID, "error", err)
		}
	}

	url, err := s.storage.Upload(ctx, fmt.Sprintf("user-%s-%d.jpg", userID, s.now().UnixMilli()), jpeg)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	u.PhotoURL = url
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// ByInviteCode finds the owner of an invite code.
func (s *Service) ByInviteCode(ctx context.Context, code string) (*domain.User, error) {
	u, err := s.repo.GetUserByInviteCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get user by invite code: %w", err)
	}
	if u == nil {
		return nil, shared.NotFound("Пользователь с таким кодом приглашения не найден")
	}
	return u, nil
}

// InviteLink returns the mini-app deep link carrying the user's invite code.
func (s *Service) InviteLink(u *domain.User) string {
	return fmt.Sprintf("https://t.me/%s?startapp=%s", s.botUsername, u.InviteCode)
}

// InviteQR renders the user's invite link as a PNG QR code.
func (s *Service) InviteQR(ctx context.Context, userID string) ([]byte, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(s.InviteLink(u), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode invite qr: %w", err)
	}
	return png, nil
}
