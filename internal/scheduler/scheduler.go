// Package scheduler runs the daily reminder plan, the weekly report job
// and refresh token cleanup.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/store"
)

// Cron specs in the scheduler's location.
const (
	DailySpec        = "0 0 * * *"
	WeeklySpec       = "0 9 * * SUN"
	TokenCleanupSpec = "30 * * * *"
)

// Checker runs the reminder checks for a user.
type Checker interface {
	CheckToday(ctx context.Context, user *domain.User) error
	CheckTomorrow(ctx context.Context, user *domain.User) error
	CheckMonthly(ctx context.Context, user *domain.User) error
}

// ReportRunner regenerates every user's weekly report.
type ReportRunner interface {
	RunAll(ctx context.Context) error
}

// Scheduler owns the cron jobs and the reminder timers of the current day.
type Scheduler struct {
	repo    store.Repository
	checks  Checker
	reports ReportRunner
	loc     *time.Location
	now     func() time.Time
	after   func(d time.Duration, f func()) *time.Timer

	mu     sync.Mutex
	cron   *cron.Cron
	timers []*time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler evaluating wall-clock times in loc.
func New(repo store.Repository, checks Checker, reports ReportRunner, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		repo:    repo,
		checks:  checks,
		reports: reports,
		loc:     loc,
		now:     time.Now,
		after:   time.AfterFunc,
	}
}

// Start registers the cron jobs and plans the rest of today. With
// reportsNow a weekly report run starts in the background right away.
func (s *Scheduler) Start(ctx context.Context, reportsNow bool) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	c := cron.New(cron.WithLocation(s.loc))
	s.cron = c
	s.mu.Unlock()

	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{DailySpec, "daily notifications", func() { s.PlanDay(s.ctx) }},
		{WeeklySpec, "weekly reports", s.runReports},
		{TokenCleanupSpec, "refresh token cleanup", func() { s.cleanupTokens(s.ctx) }},
	}
	for _, j := range jobs {
		if _, err := c.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	c.Start()
	slog.Info("Scheduler started", "location", s.loc.String())

	s.PlanDay(s.ctx)
	if reportsNow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			slog.Info("Running one-off weekly report generation")
			s.runReports()
		}()
	}
	return nil
}

// Stop cancels the cron jobs, pending timers and running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	if s.cancel != nil {
		s.cancel()
	}
	s.clearTimers()
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) runReports() {
	if err := s.reports.RunAll(s.ctx); err != nil {
		slog.Error("Weekly report job failed", "error", err)
	}
}

func (s *Scheduler) cleanupTokens(ctx context.Context) {
	n, err := s.repo.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		slog.Error("Refresh token cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Expired refresh tokens deleted", "count", n)
	}
}

type reminder struct {
	kind string
	at   string
	run  func(ctx context.Context, user *domain.User) error
}

// clearTimers stops and forgets every reminder timer. Callers hold s.mu.
func (s *Scheduler) clearTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// PlanDay schedules a timer for every reminder time still ahead today and
// returns how many were scheduled. Times already passed are skipped. Timers
// left from a previous plan are stopped first.
func (s *Scheduler) PlanDay(ctx context.Context) int {
	s.mu.Lock()
	s.clearTimers()
	s.mu.Unlock()

	all, err := s.repo.ListSettings(ctx)
	if err != nil {
		slog.Error("Failed to load notification settings", "error", err)
		return 0
	}

	now := s.now().In(s.loc)
	planned := 0
	for _, ns := range all {
		reminders := []reminder{
			{"today", ns.TodaySubGoalsNotificationsTime, s.checks.CheckToday},
			{"tomorrow", ns.TomorrowSubGoalNotificationsTime, s.checks.CheckTomorrow},
			{"monthly", ns.MonthlyGoalDeadlineNotificationsTime, s.checks.CheckMonthly},
		}
		for _, r := range reminders {
			if r.at == "" {
				continue
			}
			at, err := clockToday(now, r.at)
			if err != nil {
				slog.Warn("Invalid notification time", "user_id", ns.UserID, "kind", r.kind, "time", r.at)
				continue
			}
			if !at.After(now) {
				continue
			}
			s.schedule(ctx, ns.UserID, r, at.Sub(now))
			planned++
		}
	}
	slog.Info("Notifications planned", "users", len(all), "timers", planned)
	return planned
}

func (s *Scheduler) schedule(ctx context.Context, userID string, r reminder, delay time.Duration) {
	t := s.after(delay, func() {
		user, err := s.repo.GetUser(ctx, userID)
		if err != nil || user == nil {
			slog.Warn("Notification user unavailable", "user_id", userID, "error", err)
			return
		}
		if err := r.run(ctx, user); err != nil {
			slog.Error("Notification check failed", "user_id", userID, "kind", r.kind, "error", err)
		}
	})
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
}

// clockToday returns today's date in now's location at the HH:MM time.
func clockToday(now time.Time, hhmm string) (time.Time, error) {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", hhmm)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", hhmm)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", hhmm)
	}
	y, mo, d := now.Date()
	return time.Date(y, mo, d, hours, minutes, 0, 0, now.Location()), nil
}
