package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
	"github.com/celiscope/celiscope/internal/store"
)

// AddFriendInput names the new friend by invite code or user ID.
type AddFriendInput struct {
	InviteCode string `json:"inviteCode"`
	FriendID   string `json:"friendId"`
}

// Friendships manages friend links.
type Friendships struct {
	repo store.Repository
}

// NewFriendships creates a friendship service.
func NewFriendships(repo store.Repository) *Friendships {
	return &Friendships{repo: repo}
}

// Add befriends the user with the user named by in.
func (f *Friendships) Add(ctx context.Context, userID string, in AddFriendInput) (*domain.Friendship, error) {
	friendID, err := f.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	if friendID == userID {
		return nil, shared.BadRequest("Нельзя добавить самого себя в друзья")
	}

	existing, err := f.repo.GetFriendship(ctx, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	if existing != nil {
		return nil, shared.BadRequest("Дружба уже существует")
	}

	fs := &domain.Friendship{FirstUserID: userID, SecondUserID: friendID}
	if err := f.repo.CreateFriendship(ctx, fs); err != nil {
		return nil, fmt.Errorf("create friendship: %w", err)
	}
	slog.Info("Friendship created", "user_id", userID, "friend_id", friendID)
	return fs, nil
}

func (f *Friendships) resolve(ctx context.Context, in AddFriendInput) (string, error) {
	switch {
	case in.InviteCode != "":
		u, err := f.repo.GetUserByInviteCode(ctx, in.InviteCode)
		if err != nil {
			return "", fmt.Errorf("get user by invite code: %w", err)
		}
		if u == nil {
			return "", shared.NotFound("Пользователь с таким кодом приглашения не найден")
		}
		return u.ID, nil
	case in.FriendID != "":
		u, err := f.repo.GetUser(ctx, in.FriendID)
		if err != nil {
			return "", fmt.Errorf("get user: %w", err)
		}
		if u == nil {
			return "", shared.NotFound("Пользователь не найден")
		}
		return u.ID, nil
	default:
		return "", shared.BadRequest("Укажите inviteCode или friendId")
	}
}

// Remove deletes the friendship of the two users in either direction.
func (f *Friendships) Remove(ctx context.Context, userID, friendID string) error {
	ok, err := f.repo.DeleteFriendship(ctx, userID, friendID)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	if !ok {
		return shared.NotFound("Дружба не найдена")
	}
	return nil
}

// List returns the user's friends.
func (f *Friendships) List(ctx context.Context, userID string) ([]domain.Profile, error) {
	users, err := f.repo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	out := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}
