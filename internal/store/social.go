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

// CreateFriendship links two users.
func (s *SQLStore) CreateFriendship(ctx context.Context, f *domain.Friendship) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	err := shared.Retry(ctx, "create friendship", func() error {
		_, err := s.exec(ctx, `INSERT INTO friendships (first_user_id, second_user_id, created_at) VALUES (?, ?, ?)`,
			f.FirstUserID, f.SecondUserID, f.CreatedAt.Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

// GetFriendship finds the friendship of two users in either direction.
func (s *SQLStore) GetFriendship(ctx context.Context, userID, friendID string) (*domain.Friendship, error) {
	row := s.queryRow(ctx, `
		SELECT first_user_id, second_user_id, created_at FROM friendships
		WHERE (first_user_id = ? AND second_user_id = ?) OR (first_user_id = ? AND second_user_id = ?)`,
		userID, friendID, friendID, userID)

	var f domain.Friendship
	var createdAt int64
	err := row.Scan(&f.FirstUserID, &f.SecondUserID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan friendship: %w", err)
	}
	f.CreatedAt = time.Unix(createdAt, 0)
	return &f, nil
}

// DeleteFriendship removes the friendship of two users in either direction
// and reports whether one existed.
func (s *SQLStore) DeleteFriendship(ctx context.Context, userID, friendID string) (bool, error) {
	var result sql.Result
	err := shared.Retry(ctx, "delete friendship", func() error {
		var err error
		result, err = s.exec(ctx, `
			DELETE FROM friendships
			WHERE (first_user_id = ? AND second_user_id = ?) OR (first_user_id = ? AND second_user_id = ?)`,
			userID, friendID, friendID, userID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListFriends returns the users befriended with userID.
func (s *SQLStore) ListFriends(ctx context.Context, userID string) ([]*domain.User, error) {
	rows, err := s.query(ctx, `
		SELECT `+userColumns+` FROM users WHERE id IN (
			SELECT second_user_id FROM friendships WHERE first_user_id = ?
			UNION
			SELECT first_user_id FROM friendships WHERE second_user_id = ?
		) ORDER BY first_name, id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query friends: %w", err)
	}
	defer closeRows(rows, "friends")
	return collectUsers(rows)
}

const settingsColumns = `user_id, today_sub_goals, tomorrow_sub_goals, monthly_goal_deadline, custom,
	today_sub_goals_time, tomorrow_sub_goals_time, monthly_goal_deadline_time, custom_time, created_at, updated_at`

func scanSettings(row rowScanner) (*domain.NotificationSettings, error) {
	var ns domain.NotificationSettings
	var createdAt, updatedAt int64
	err := row.Scan(
		&ns.UserID, &ns.TodaySubGoalsNotifications, &ns.TomorrowSubGoalNotifications,
		&ns.MonthlyGoalDeadlineNotifications, &ns.CustomNotifications,
		&ns.TodaySubGoalsNotificationsTime, &ns.TomorrowSubGoalNotificationsTime,
		&ns.MonthlyGoalDeadlineNotificationsTime, &ns.CustomNotificationsTime,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	ns.CreatedAt = time.Unix(createdAt, 0)
	ns.UpdatedAt = time.Unix(updatedAt, 0)
	return &ns, nil
}

// GetSettings retrieves the notification settings of a user.
func (s *SQLStore) GetSettings(ctx context.Context, userID string) (*domain.NotificationSettings, error) {
	ns, err := scanSettings(s.queryRow(ctx, `SELECT `+settingsColumns+` FROM notification_settings WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	return ns, nil
}

// UpsertSettings creates or replaces notification settings.
func (s *SQLStore) UpsertSettings(ctx context.Context, ns *domain.NotificationSettings) error {
	now := time.Now()
	if ns.CreatedAt.IsZero() {
		ns.CreatedAt = now
	}
	ns.UpdatedAt = now
	err := shared.Retry(ctx, "upsert settings", func() error {
		_, err := s.exec(ctx, `
			INSERT INTO notification_settings (`+settingsColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				today_sub_goals = excluded.today_sub_goals,
				tomorrow_sub_goals = excluded.tomorrow_sub_goals,
				monthly_goal_deadline = excluded.monthly_goal_deadline,
				custom = excluded.custom,
				today_sub_goals_time = excluded.today_sub_goals_time,
				tomorrow_sub_goals_time = excluded.tomorrow_sub_goals_time,
				monthly_goal_deadline_time = excluded.monthly_goal_deadline_time,
				custom_time = excluded.custom_time,
				updated_at = excluded.updated_at`,
			ns.UserID, ns.TodaySubGoalsNotifications, ns.TomorrowSubGoalNotifications,
			ns.MonthlyGoalDeadlineNotifications, ns.CustomNotifications,
			ns.TodaySubGoalsNotificationsTime, ns.TomorrowSubGoalNotificationsTime,
			ns.MonthlyGoalDeadlineNotificationsTime, ns.CustomNotificationsTime,
			ns.CreatedAt.Unix(), ns.UpdatedAt.Unix(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// ListSettings returns the settings of every user that has them.
func (s *SQLStore) ListSettings(ctx context.Context) ([]*domain.NotificationSettings, error) {
	rows, err := s.query(ctx, `SELECT `+settingsColumns+` FROM notification_settings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer closeRows(rows, "notification_settings")

	var out []*domain.NotificationSettings
	for rows.Next() {
		ns, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}
		out = append(out, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// UpsertWeeklyReport stores the report of a user's week, replacing an
// earlier one for the same week.
func (s *SQLStore) UpsertWeeklyReport(ctx context.Context, r *domain.WeeklyReport) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	err := shared.Retry(ctx, "upsert weekly report", func() error {
		row := s.queryRow(ctx, `
			INSERT INTO weekly_reports (user_id, week_start, text, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id, week_start) DO UPDATE SET
				text = excluded.text,
				updated_at = excluded.updated_at
			RETURNING id`,
			r.UserID, r.WeekStart.Unix(), r.Text, r.CreatedAt.Unix(), r.UpdatedAt.Unix())
		return row.Scan(&r.ID)
	})
	if err != nil {
		return fmt.Errorf("upsert weekly report: %w", err)
	}
	return nil
}

// ListWeeklyReports returns a user's reports, newest week first.
func (s *SQLStore) ListWeeklyReports(ctx context.Context, userID string) ([]*domain.WeeklyReport, error) {
	rows, err := s.query(ctx, `
		SELECT id, user_id, week_start, text, created_at, updated_at
		FROM weekly_reports WHERE user_id = ? ORDER BY week_start DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query weekly reports: %w", err)
	}
	defer closeRows(rows, "weekly_reports")

	reports := []*domain.WeeklyReport{}
	for rows.Next() {
		var r domain.WeeklyReport
		var weekStart, createdAt, updatedAt int64
		if err := rows.Scan(&r.ID, &r.UserID, &weekStart, &r.Text, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan weekly report: %w", err)
		}
		r.WeekStart = time.Unix(weekStart, 0)
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly reports: %w", err)
	}
	return reports, nil
}
