package weekly

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/celiscope/celiscope/internal/ai"
	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
	"github.com/celiscope/celiscope/internal/store"
)

// Narrator turns weekly data into report text.
type Narrator interface {
	WeeklyReport(ctx context.Context, in ai.WeeklyReportInput) (ai.ChatResult, error)
}

// Report is a freshly generated report with the data it was built from.
type Report struct {
	Text string `json:"text"`
	domain.WeeklyData
}

// Service generates, caches and stores weekly reports.
type Service struct {
	repo     store.Repository
	narrator Narrator
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a weekly report service. Weeks start on Monday in loc.
func NewService(repo store.Repository, narrator Narrator, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, narrator: narrator, loc: loc, now: time.Now}
}

// Generate builds the user's weekly data, narrates it and stores the text
// as the report of the current week.
func (s *Service) Generate(ctx context.Context, user *domain.User) (*Report, error) {
	goals, err := s.repo.ListGoals(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	now := s.now().In(s.loc)
	data := Build(goals, now)

	res, err := s.narrator.WeeklyReport(ctx, ai.WeeklyReportInput{
		UserName:       user.DisplayName(),
		GoalsSummary:   data.GoalsSummary,
		CompletedGoals: data.CompletedGoals,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertWeeklyReport(ctx, &domain.WeeklyReport{
		UserID:    user.ID,
		Text:      res.Text,
		WeekStart: domain.WeekStart(now),
	}); err != nil {
		return nil, fmt.Errorf("store weekly report: %w", err)
	}
	return &Report{Text: res.Text, WeeklyData: data}, nil
}

// Refresh generates a report and caches its text on the user.
func (s *Service) Refresh(ctx context.Context, user *domain.User) (string, error) {
	report, err := s.Generate(ctx, user)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetWeekReport(ctx, user.ID, report.Text); err != nil {
		return "", fmt.Errorf("cache weekly report: %w", err)
	}
	return report.Text, nil
}

// Current returns the cached report text, generating it when absent.
func (s *Service) Current(ctx context.Context, userID string) (string, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.WeekReport != "" {
		return user.WeekReport, nil
	}
	return s.Refresh(ctx, user)
}

// Fresh always generates a new report for the user.
func (s *Service) Fresh(ctx context.Context, userID string) (*Report, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, user)
}

// History lists the user's stored reports, newest week first.
func (s *Service) History(ctx context.Context, userID string) ([]*domain.WeeklyReport, error) {
	reports, err := s.repo.ListWeeklyReports(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list weekly reports: %w", err)
	}
	return reports, nil
}

// RunAll refreshes the report of every user. Failures are logged per user
// and do not stop the run; the first error is returned at the end.
func (s *Service) RunAll(ctx context.Context) error {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	start := time.Now()
	var firstErr error
	done := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.Refresh(ctx, u); err != nil {
			slog.Error("Weekly report failed", "user_id", u.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	slog.Info("Weekly reports generated", "users", len(users), "succeeded", done, "duration", time.Since(start))
	return firstErr
}

func (s *Service) user(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, shared.NotFound("Пользователь не найден")
	}
	return u, nil
}
