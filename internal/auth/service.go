package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
)

// Store is the persistence the auth service needs.
type Store interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

// LoginRequest is the body of POST /api/auth/telegram. InitDataRaw is the
// signed query string; when present and verification is on, the user is
// taken from it instead of InitData.
type LoginRequest struct {
	InitData    InitData `json:"initData"`
	InitDataRaw string   `json:"initDataRaw"`
}

// Session is the result of a login or refresh.
type Session struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         domain.Profile `json:"user"`

	RefreshExpiresAt time.Time `json:"-"`
}

// Service logs users in and rotates their tokens.
type Service struct {
	store    Store
	tokens   *TokenManager
	botToken string
	verify   bool
	maxAge   time.Duration
}

// NewService creates an auth Service. When verify is set, signed launch
// data is checked against botToken.
func NewService(store Store, tokens *TokenManager, botToken string, verify bool) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		botToken: botToken,
		verify:   verify,
		maxAge:   24 * time.Hour,
	}
}

// Tokens returns the token manager, used by the access middleware.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Login creates or updates the Telegram user and issues a session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	data := req.InitData
	if s.verify && req.InitDataRaw != "" {
		verified, err := VerifyInitData(req.InitDataRaw, s.botToken, s.maxAge, s.tokens.now())
		if err != nil {
			slog.Warn("Rejected Telegram init data", "error", err)
			return nil, shared.Unauthorized()
		}
		data = *verified
	}
	if data.User.ID == 0 {
		return nil, shared.BadRequest("Некорректные данные авторизации")
	}

	user, err := s.upsertUser(ctx, data.User)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *Service) upsertUser(ctx context.Context, tg TelegramUser) (*domain.User, error) {
	id := strconv.FormatInt(tg.ID, 10)
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		user = &domain.User{
			ID:         id,
			FirstName:  tg.FirstName,
			LastName:   tg.LastName,
			Username:   tg.Username,
			PhotoURL:   tg.PhotoURL,
			InviteCode: domain.InviteCodeFor(id),
			ChatID:     id,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		slog.Info("User registered", "user_id", id)
		return user, nil
	}

	if !user.HasChat() {
		user.ChatID = id
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("set chat id: %w", err)
		}
	}
	return user, nil
}

// Refresh validates a refresh token and rotates it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, shared.Unauthorized()
	}
	profile, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		slog.Debug("Invalid refresh token", "error", err)
		return nil, shared.Unauthorized()
	}
	stored, err := s.store.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if stored == nil || stored.UserID != profile.ID {
		return nil, shared.Unauthorized()
	}

	user, err := s.store.GetUser(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, shared.Unauthorized()
	}

	if err := s.store.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.store.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *Service) issue(ctx context.Context, user *domain.User) (*Session, error) {
	profile := user.Profile()
	pair, err := s.tokens.Issue(profile)
	if err != nil {
		return nil, err
	}
	err = s.store.SaveRefreshToken(ctx, &domain.RefreshToken{
		Token:     pair.RefreshToken,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return &Session{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		User:             profile,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}
