package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
)

const userColumns = `id, first_name, last_name, username, photo_url, invite_code, chat_id, week_report, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var createdAt, updatedAt int64
	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Username, &user.PhotoURL,
		&user.InviteCode, &user.ChatID, &user.WeekReport, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

func (s *SQLStore) getUserBy(ctx context.Context, column, value string) (*domain.User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *SQLStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUserBy(ctx, "id", userID)
}

// GetUserByInviteCode retrieves the user owning an invite code.
func (s *SQLStore) GetUserByInviteCode(ctx context.Context, code string) (*domain.User, error) {
	return s.getUserBy(ctx, "invite_code", code)
}

// CreateUser inserts a new user.
func (s *SQLStore) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	err := shared.Retry(ctx, "create user", func() error {
		_, err := s.exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.FirstName, user.LastName, user.Username, user.PhotoURL,
			user.InviteCode, user.ChatID, user.WeekReport, user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateUser stores the mutable profile fields of a user.
func (s *SQLStore) UpdateUser(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now()
	var result sql.Result
	err := shared.Retry(ctx, "update user", func() error {
		var err error
		result, err = s.exec(ctx, `
			UPDATE users SET first_name = ?, last_name = ?, username = ?, photo_url = ?,
				chat_id = ?, updated_at = ?
			WHERE id = ?`,
			user.FirstName, user.LastName, user.Username, user.PhotoURL,
			user.ChatID, user.UpdatedAt.Unix(), user.ID,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(result, "user")
}

// SetWeekReport caches the latest weekly report text on the user.
func (s *SQLStore) SetWeekReport(ctx context.Context, userID, text string) error {
	err := shared.Retry(ctx, "set week report", func() error {
		_, err := s.exec(ctx, `UPDATE users SET week_report = ?, updated_at = ? WHERE id = ?`,
			text, time.Now().Unix(), userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("set week report: %w", err)
	}
	return nil
}

// ListUsers returns all users.
func (s *SQLStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer closeRows(rows, "users")
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]*domain.User, error) {
	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// SaveRefreshToken stores an issued refresh token.
func (s *SQLStore) SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	err := shared.Retry(ctx, "save refresh token", func() error {
		_, err := s.exec(ctx, `
			INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(token) DO UPDATE SET expires_at = excluded.expires_at`,
			token.Token, token.UserID, token.ExpiresAt.Unix(), token.CreatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves a stored refresh token.
func (s *SQLStore) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	row := s.queryRow(ctx, `SELECT token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = ?`, token)

	var rt domain.RefreshToken
	var expiresAt, createdAt int64
	err := row.Scan(&rt.Token, &rt.UserID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	rt.ExpiresAt = time.Unix(expiresAt, 0)
	rt.CreatedAt = time.Unix(createdAt, 0)
	return &rt, nil
}

// DeleteRefreshToken revokes a refresh token.
func (s *SQLStore) DeleteRefreshToken(ctx context.Context, token string) error {
	err := shared.Retry(ctx, "delete refresh token", func() error {
		_, err := s.exec(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes tokens that expired before now.
func (s *SQLStore) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired refresh tokens: %w", err)
	}
	return result.RowsAffected()
}

// ErrNotFound is returned by updates that matched no row.
var ErrNotFound = errors.New("not found")

func requireRow(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
