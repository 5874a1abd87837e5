package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/store"
)

// Notification kinds.
const (
	KindTodaySubGoals    = "today_sub_goals"
	KindTomorrowSubGoals = "tomorrow_sub_goals"
	KindMonthlyDeadlines = "monthly_deadlines"
	KindTrigger          = "trigger"
)

const monthlyHorizon = 30 * 24 * time.Hour

// Sender delivers a text to a Telegram chat.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// Pusher delivers a message to a user's open sockets.
type Pusher interface {
	Push(ctx context.Context, userID string, msg Message) int
}

// Notifier fans notifications out to Telegram and websocket clients and
// runs the reminder checks.
type Notifier struct {
	repo   store.Repository
	sender Sender
	pusher Pusher
	loc    *time.Location
	now    func() time.Time
}

// NewNotifier creates a notifier. Calendar days are evaluated in loc.
func NewNotifier(repo store.Repository, sender Sender, pusher Pusher, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{repo: repo, sender: sender, pusher: pusher, loc: loc, now: time.Now}
}

// Notify sends text to the user and reports whether Telegram delivered it.
func (n *Notifier) Notify(ctx context.Context, user *domain.User, kind, text string) bool {
	if n.pusher != nil {
		n.pusher.Push(ctx, user.ID, Message{Type: kind, Text: text, SentAt: n.now().UTC()})
	}
	if !user.HasChat() || n.sender == nil {
		return false
	}
	if err := n.sender.Send(ctx, user.ChatID, text); err != nil {
		if !errors.Is(err, ErrDisabled) {
			slog.Error("Telegram notification failed", "user_id", user.ID, "kind", kind, "error", err)
		}
		return false
	}
	return true
}

// CheckToday reminds the user of open sub-goals due today.
func (n *Notifier) CheckToday(ctx context.Context, user *domain.User) error {
	return n.check(ctx, user, KindTodaySubGoals, func(s *domain.NotificationSettings) bool {
		return s.TodaySubGoalsNotifications
	}, func(goals []*domain.Goal, now time.Time) string {
		return dueOn(goals, now, "Сегодня срок по задачам:")
	})
}

// CheckTomorrow reminds the user of open sub-goals due tomorrow.
func (n *Notifier) CheckTomorrow(ctx context.Context, user *domain.User) error {
	return n.check(ctx, user, KindTomorrowSubGoals, func(s *domain.NotificationSettings) bool {
		return s.TomorrowSubGoalNotifications
	}, func(goals []*domain.Goal, now time.Time) string {
		return dueOn(goals, now.AddDate(0, 0, 1), "Завтра срок по задачам:")
	})
}

// CheckMonthly reminds the user of goals due within 30 days.
func (n *Notifier) CheckMonthly(ctx context.Context, user *domain.User) error {
	return n.check(ctx, user, KindMonthlyDeadlines, func(s *domain.NotificationSettings) bool {
		return s.MonthlyGoalDeadlineNotifications
	}, monthlyDeadlines)
}

func (n *Notifier) check(
	ctx context.Context,
	user *domain.User,
	kind string,
	enabled func(*domain.NotificationSettings) bool,
	compose func([]*domain.Goal, time.Time) string,
) error {
	settings, err := n.repo.GetSettings(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	if settings == nil {
		settings = domain.DefaultNotificationSettings(user.ID, n.now())
	}
	if !enabled(settings) {
		slog.Debug("Notification disabled by settings", "user_id", user.ID, "kind", kind)
		return nil
	}

	goals, err := n.repo.ListGoals(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list goals: %w", err)
	}
	text := compose(goals, n.now().In(n.loc))
	if text == "" {
		return nil
	}
	n.Notify(ctx, user, kind, text)
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// dueOn lists open sub-goals of active goals whose deadline falls on day.
func dueOn(goals []*domain.Goal, day time.Time, header string) string {
	var lines []string
	for _, g := range goals {
		if g.IsCompleted {
			continue
		}
		for _, sg := range g.SubGoals {
			if !sg.IsCompleted && sameDay(day, sg.Deadline) {
				lines = append(lines, fmt.Sprintf("• %s (%s)", sg.Description, g.Title))
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// monthlyDeadlines lists active goals due between now and 30 days ahead.
func monthlyDeadlines(goals []*domain.Goal, now time.Time) string {
	var lines []string
	for _, g := range goals {
		if g.IsCompleted || g.Deadline.Before(now) || g.Deadline.Sub(now) > monthlyHorizon {
			continue
		}
		days := int(g.Deadline.Sub(now).Hours() / 24)
		lines = append(lines, fmt.Sprintf("• %s: до %s (осталось дней: %d)",
			g.Title, g.Deadline.In(now.Location()).Format("02.01.2006"), days))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Цели со сроком в ближайшие 30 дней:\n" + strings.Join(lines, "\n")
}
