// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/celiscope/celiscope/internal/domain"
)

// Repository defines the interface for persisting users, goals, friendships,
// settings and reports. Lookups of missing rows return nil, nil.
type Repository interface {
	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByInviteCode retrieves the user owning an invite code.
	GetUserByInviteCode(ctx context.Context, code string) (*domain.User, error)

	// CreateUser inserts a new user.
	CreateUser(ctx context.Context, user *domain.User) error

	// UpdateUser stores the mutable profile fields of a user.
	UpdateUser(ctx context.Context, user *domain.User) error

	// SetWeekReport caches the latest weekly report text on the user.
	SetWeekReport(ctx context.Context, userID, text string) error

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// SaveRefreshToken stores an issued refresh token.
	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error

	// GetRefreshToken retrieves a stored refresh token.
	GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)

	// DeleteRefreshToken revokes a refresh token.
	DeleteRefreshToken(ctx context.Context, token string) error

	// DeleteExpiredRefreshTokens removes tokens that expired before now.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	// CreateGoal inserts a goal with its sub-goals and fills in their IDs.
	CreateGoal(ctx context.Context, goal *domain.Goal) error

	// GetGoal retrieves a goal with its sub-goals.
	GetGoal(ctx context.Context, goalID int64) (*domain.Goal, error)

	// ListGoals returns the goals of a user, newest first.
	ListGoals(ctx context.Context, userID string) ([]*domain.Goal, error)

	// ListPublicGoals returns the PUBLIC goals of the given users.
	ListPublicGoals(ctx context.Context, userIDs []string) ([]*domain.Goal, error)

	// UpdateGoal stores the goal row, inserts sub-goals without an ID,
	// updates the others and deletes removedSubGoals, atomically.
	UpdateGoal(ctx context.Context, goal *domain.Goal, removedSubGoals []int64) error

	// GetSubGoal retrieves a sub-goal.
	GetSubGoal(ctx context.Context, subGoalID int64) (*domain.SubGoal, error)

	// SetSubGoalCompleted marks a sub-goal as done or not done.
	SetSubGoalCompleted(ctx context.Context, subGoalID int64, completed bool, at time.Time) error

	// CreateFriendship links two users.
	CreateFriendship(ctx context.Context, f *domain.Friendship) error

	// GetFriendship finds the friendship of two users in either direction.
	GetFriendship(ctx context.Context, userID, friendID string) (*domain.Friendship, error)

	// DeleteFriendship removes the friendship of two users in either
	// direction and reports whether one existed.
	DeleteFriendship(ctx context.Context, userID, friendID string) (bool, error)

	// ListFriends returns the users befriended with userID.
	ListFriends(ctx context.Context, userID string) ([]*domain.User, error)

	// GetSettings retrieves the notification settings of a user.
	GetSettings(ctx context.Context, userID string) (*domain.NotificationSettings, error)

	// UpsertSettings creates or replaces notification settings.
	UpsertSettings(ctx context.Context, s *domain.NotificationSettings) error

	// ListSettings returns the settings of every user that has them.
	ListSettings(ctx context.Context) ([]*domain.NotificationSettings, error)

	// UpsertWeeklyReport stores the report of a user's week, replacing an
	// earlier one for the same week.
	UpsertWeeklyReport(ctx context.Context, r *domain.WeeklyReport) error

	// ListWeeklyReports returns a user's reports, newest week first.
	ListWeeklyReports(ctx context.Context, userID string) ([]*domain.WeeklyReport, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
