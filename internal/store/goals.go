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

const goalColumns = `id, user_id, title, description, urgency_level, privacy, specific, measurable,
	attainable, relevant, award, deadline, image_url, is_completed, completed_at, created_at, updated_at`

const subGoalColumns = `id, goal_id, description, deadline, is_completed, completed_at, created_at, updated_at`

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var g domain.Goal
	var urgency, privacy string
	var deadline, createdAt, updatedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(
		&g.ID, &g.UserID, &g.Title, &g.Description, &urgency, &privacy,
		&g.Specific, &g.Measurable, &g.Attainable, &g.Relevant, &g.Award,
		&deadline, &g.ImageURL, &g.IsCompleted, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.UrgencyLevel = domain.UrgencyLevel(urgency)
	g.Privacy = domain.Privacy(privacy)
	g.Deadline = time.Unix(deadline, 0)
	g.CompletedAt = fromNullableUnix(completedAt)
	g.CreatedAt = time.Unix(createdAt, 0)
	g.UpdatedAt = time.Unix(updatedAt, 0)
	g.SubGoals = []domain.SubGoal{}
	return &g, nil
}

func scanSubGoal(row rowScanner) (*domain.SubGoal, error) {
	var sg domain.SubGoal
	var deadline, createdAt, updatedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(&sg.ID, &sg.GoalID, &sg.Description, &deadline, &sg.IsCompleted, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	sg.Deadline = time.Unix(deadline, 0)
	sg.CompletedAt = fromNullableUnix(completedAt)
	sg.CreatedAt = time.Unix(createdAt, 0)
	sg.UpdatedAt = time.Unix(updatedAt, 0)
	return &sg, nil
}

func (s *SQLStore) insertSubGoal(ctx context.Context, tx *sql.Tx, sg *domain.SubGoal, now time.Time) error {
	sg.CreatedAt = now
	sg.UpdatedAt = now
	row := tx.QueryRowContext(ctx, s.rebind(`
		INSERT INTO sub_goals (goal_id, description, deadline, is_completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		sg.GoalID, sg.Description, sg.Deadline.Unix(), sg.IsCompleted, nullableUnix(sg.CompletedAt),
		now.Unix(), now.Unix(),
	)
	if err := row.Scan(&sg.ID); err != nil {
		return fmt.Errorf("insert sub-goal: %w", err)
	}
	return nil
}

// CreateGoal inserts a goal with its sub-goals and fills in their IDs.
func (s *SQLStore) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	now := time.Now()
	goal.CreatedAt = now
	goal.UpdatedAt = now

	return shared.Retry(ctx, "create goal", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			row := tx.QueryRowContext(ctx, s.rebind(`
				INSERT INTO goals (user_id, title, description, urgency_level, privacy, specific, measurable,
					attainable, relevant, award, deadline, image_url, is_completed, completed_at, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id`),
				goal.UserID, goal.Title, goal.Description, string(goal.UrgencyLevel), string(goal.Privacy),
				goal.Specific, goal.Measurable, goal.Attainable, goal.Relevant, goal.Award,
				goal.Deadline.Unix(), goal.ImageURL, goal.IsCompleted, nullableUnix(goal.CompletedAt),
				now.Unix(), now.Unix(),
			)
			if err := row.Scan(&goal.ID); err != nil {
				return fmt.Errorf("insert goal: %w", err)
			}
			for i := range goal.SubGoals {
				goal.SubGoals[i].GoalID = goal.ID
				if err := s.insertSubGoal(ctx, tx, &goal.SubGoals[i], now); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetGoal retrieves a goal with its sub-goals.
func (s *SQLStore) GetGoal(ctx context.Context, goalID int64) (*domain.Goal, error) {
	goal, err := scanGoal(s.queryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, goalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan goal row: %w", err)
	}
	if err := s.attachSubGoals(ctx, []*domain.Goal{goal}); err != nil {
		return nil, err
	}
	return goal, nil
}

// ListGoals returns the goals of a user, newest first.
func (s *SQLStore) ListGoals(ctx context.Context, userID string) ([]*domain.Goal, error) {
	return s.listGoals(ctx, `SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListPublicGoals returns the PUBLIC goals of the given users.
func (s *SQLStore) ListPublicGoals(ctx context.Context, userIDs []string) ([]*domain.Goal, error) {
	if len(userIDs) == 0 {
		return []*domain.Goal{}, nil
	}
	args := make([]any, 0, len(userIDs)+1)
	args = append(args, string(domain.PrivacyPublic))
	for _, id := range userIDs {
		args = append(args, id)
	}
	query := `SELECT ` + goalColumns + ` FROM goals WHERE privacy = ? AND user_id IN (` +
		placeholders(len(userIDs)) + `) ORDER BY created_at DESC, id DESC`
	return s.listGoals(ctx, query, args...)
}

func (s *SQLStore) listGoals(ctx context.Context, query string, args ...any) ([]*domain.Goal, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer closeRows(rows, "goals")

	goals := []*domain.Goal{}
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal row: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	if err := s.attachSubGoals(ctx, goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// attachSubGoals loads the sub-goals of goals in one query, ordered by
// deadline.
func (s *SQLStore) attachSubGoals(ctx context.Context, goals []*domain.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	byID := make(map[int64]*domain.Goal, len(goals))
	args := make([]any, 0, len(goals))
	for _, g := range goals {
		byID[g.ID] = g
		args = append(args, g.ID)
	}

	rows, err := s.query(ctx, `SELECT `+subGoalColumns+` FROM sub_goals WHERE goal_id IN (`+
		placeholders(len(goals))+`) ORDER BY deadline, id`, args...)
	if err != nil {
		return fmt.Errorf("query sub-goals: %w", err)
	}
	defer closeRows(rows, "sub_goals")

	for rows.Next() {
		sg, err := scanSubGoal(rows)
		if err != nil {
			return fmt.Errorf("scan sub-goal row: %w", err)
		}
		if g, ok := byID[sg.GoalID]; ok {
			g.SubGoals = append(g.SubGoals, *sg)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sub-goals: %w", err)
	}
	return nil
}

// UpdateGoal stores the goal row, inserts sub-goals without an ID, updates
// the others and deletes removedSubGoals, atomically.
func (s *SQLStore) UpdateGoal(ctx context.Context, goal *domain.Goal, removedSubGoals []int64) error {
	now := time.Now()
	goal.UpdatedAt = now

	return shared.Retry(ctx, "update goal", func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, s.rebind(`
				UPDATE goals SET title = ?, description = ?, urgency_level = ?, privacy = ?, specific = ?,
					measurable = ?, attainable = ?, relevant = ?, award = ?, deadline = ?, image_url = ?,
					is_completed = ?, completed_at = ?, updated_at = ?
				WHERE id = ?`),
				goal.Title, goal.Description, string(goal.UrgencyLevel), string(goal.Privacy), goal.Specific,
				goal.Measurable, goal.Attainable, goal.Relevant, goal.Award, goal.Deadline.Unix(), goal.ImageURL,
				goal.IsCompleted, nullableUnix(goal.CompletedAt), now.Unix(), goal.ID,
			)
			if err != nil {
				return fmt.Errorf("update goal: %w", err)
			}
			if err := requireRow(result, "goal"); err != nil {
				return err
			}

			if len(removedSubGoals) > 0 {
				args := make([]any, 0, len(removedSubGoals)+1)
				args = append(args, goal.ID)
				for _, id := range removedSubGoals {
					args = append(args, id)
				}
				_, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sub_goals WHERE goal_id = ? AND id IN (`+
					placeholders(len(removedSubGoals))+`)`), args...)
				if err != nil {
					return fmt.Errorf("delete sub-goals: %w", err)
				}
			}

			for i := range goal.SubGoals {
				sg := &goal.SubGoals[i]
				sg.GoalID = goal.ID
				if sg.ID == 0 {
					if err := s.insertSubGoal(ctx, tx, sg, now); err != nil {
						return err
					}
					continue
				}
				sg.UpdatedAt = now
				_, err := tx.ExecContext(ctx, s.rebind(`
					UPDATE sub_goals SET description = ?, deadline = ?, is_completed = ?, completed_at = ?, updated_at = ?
					WHERE id = ? AND goal_id = ?`),
					sg.Description, sg.Deadline.Unix(), sg.IsCompleted, nullableUnix(sg.CompletedAt), now.Unix(),
					sg.ID, goal.ID,
				)
				if err != nil {
					return fmt.Errorf("update sub-goal %d: %w", sg.ID, err)
				}
			}
			goal.SortSubGoals()
			return nil
		})
	})
}

// GetSubGoal retrieves a sub-goal.
func (s *SQLStore) GetSubGoal(ctx context.Context, subGoalID int64) (*domain.SubGoal, error) {
	sg, err := scanSubGoal(s.queryRow(ctx, `SELECT `+subGoalColumns+` FROM sub_goals WHERE id = ?`, subGoalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sub-goal row: %w", err)
	}
	return sg, nil
}

// SetSubGoalCompleted marks a sub-goal as done or not done.
func (s *SQLStore) SetSubGoalCompleted(ctx context.Context, subGoalID int64, completed bool, at time.Time) error {
	var completedAt any
	if completed {
		completedAt = at.Unix()
	}
	var result sql.Result
	err := shared.Retry(ctx, "complete sub-goal", func() error {
		var err error
		result, err = s.exec(ctx, `UPDATE sub_goals SET is_completed = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
			completed, completedAt, at.Unix(), subGoalID)
		return err
	})
	if err != nil {
		return fmt.Errorf("update sub-goal: %w", err)
	}
	return requireRow(result, "sub-goal")
}
