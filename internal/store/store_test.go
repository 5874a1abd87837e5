package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celiscope/celiscope/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s *SQLStore, id, name string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, FirstName: name, InviteCode: domain.InviteCodeFor(id), ChatID: id}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestRebind(t *testing.T) {
	s := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "a = $1 AND b IN ($2, $3)", s.rebind("a = ? AND b IN (?, ?)"))

	s.dialect = dialectSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}

func TestPostgresSchemaTypes(t *testing.T) {
	assert.Contains(t, postgresSchema, "id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, postgresSchema, "goal_id BIGINT NOT NULL")
	assert.Contains(t, postgresSchema, "is_completed BOOLEAN NOT NULL DEFAULT FALSE")
	assert.Contains(t, postgresSchema, "today_sub_goals BOOLEAN NOT NULL DEFAULT TRUE")
	assert.NotContains(t, postgresSchema, "INTEGER")
	assert.NotContains(t, postgresSchema, "AUTOINCREMENT")
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	missing, err := s.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	u := createUser(t, s, "42", "Ann")
	got, err := s.GetUserByInviteCode(ctx, "invite_42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ann", got.FirstName)

	u.LastName = "Lee"
	u.PhotoURL = "https://img/1.jpg"
	require.NoError(t, s.UpdateUser(ctx, u))
	require.NoError(t, s.SetWeekReport(ctx, "42", "report"))

	got, err = s.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Lee", got.LastName)
	assert.Equal(t, "https://img/1.jpg", got.PhotoURL)
	assert.Equal(t, "report", got.WeekReport)

	err = s.UpdateUser(ctx, &domain.User{ID: "ghost"})
	assert.True(t, errors.Is(err, ErrNotFound))

	createUser(t, s, "43", "Bob")
	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createUser(t, s, "1", "A")

	now := time.Now()
	require.NoError(t, s.SaveRefreshToken(ctx, &domain.RefreshToken{Token: "live", UserID: "1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.SaveRefreshToken(ctx, &domain.RefreshToken{Token: "old", UserID: "1", ExpiresAt: now.Add(-time.Hour)}))

	n, err := s.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rt, err := s.GetRefreshToken(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, "1", rt.UserID)

	require.NoError(t, s.DeleteRefreshToken(ctx, "live"))
	rt, err = s.GetRefreshToken(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestGoalsLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createUser(t, s, "1", "A")

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	goal := &domain.Goal{
		UserID: "1", Title: "Run", Description: "5k", UrgencyLevel: domain.UrgencyHigh,
		Privacy: domain.PrivacyPublic, Specific: "-", Measurable: "-", Attainable: "-", Relevant: "-", Award: "-",
		Deadline: base.AddDate(0, 3, 0), ImageURL: domain.PlaceholderImageURL,
		SubGoals: []domain.SubGoal{
			{Description: "later", Deadline: base.AddDate(0, 0, 10)},
			{Description: "sooner", Deadline: base.AddDate(0, 0, 1)},
		},
	}
	require.NoError(t, s.CreateGoal(ctx, goal))
	require.NotZero(t, goal.ID)
	require.NotZero(t, goal.SubGoals[0].ID)

	got, err := s.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.UrgencyHigh, got.UrgencyLevel)
	require.Len(t, got.SubGoals, 2)
	assert.Equal(t, "sooner", got.SubGoals[0].Description)
	assert.True(t, got.Deadline.Equal(goal.Deadline))

	sooner := got.SubGoals[0]
	at := base.Add(time.Hour)
	require.NoError(t, s.SetSubGoalCompleted(ctx, sooner.ID, true, at))
	sg, err := s.GetSubGoal(ctx, sooner.ID)
	require.NoError(t, err)
	assert.True(t, sg.IsCompleted)
	require.NotNil(t, sg.CompletedAt)
	assert.Equal(t, at.Unix(), sg.CompletedAt.Unix())

	require.NoError(t, s.SetSubGoalCompleted(ctx, sooner.ID, false, at))
	sg, err = s.GetSubGoal(ctx, sooner.ID)
	require.NoError(t, err)
	assert.False(t, sg.IsCompleted)
	assert.Nil(t, sg.CompletedAt)

	got.Title = "Run fast"
	got.SubGoals = []domain.SubGoal{got.SubGoals[0], {Description: "new", Deadline: base.AddDate(0, 0, 5)}}
	require.NoError(t, s.UpdateGoal(ctx, got, []int64{goal.SubGoals[0].ID}))

	got, err = s.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Run fast", got.Title)
	require.Len(t, got.SubGoals, 2)
	assert.Equal(t, "sooner", got.SubGoals[0].Description)
	assert.Equal(t, "new", got.SubGoals[1].Description)

	missing, err := s.GetGoal(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.True(t, errors.Is(s.SetSubGoalCompleted(ctx, 9999, true, at), ErrNotFound))
}

func TestListGoals(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createUser(t, s, "1", "A")
	createUser(t, s, "2", "B")

	for _, g := range []*domain.Goal{
		{UserID: "1", Title: "private", Privacy: domain.PrivacyPrivate, UrgencyLevel: domain.UrgencyLow},
		{UserID: "1", Title: "public", Privacy: domain.PrivacyPublic, UrgencyLevel: domain.UrgencyLow,
			SubGoals: []domain.SubGoal{{Description: "x", Deadline: time.Now()}}},
		{UserID: "2", Title: "other", Privacy: domain.PrivacyPublic, UrgencyLevel: domain.UrgencyLow},
	} {
		g.Deadline = time.Now()
		require.NoError(t, s.CreateGoal(ctx, g))
	}

	mine, err := s.ListGoals(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	public, err := s.ListPublicGoals(ctx, []string{"1"})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "public", public[0].Title)
	assert.Len(t, public[0].SubGoals, 1)

	none, err := s.ListPublicGoals(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFriendships(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createUser(t, s, "1", "A")
	createUser(t, s, "2", "B")
	createUser(t, s, "3", "C")

	require.NoError(t, s.CreateFriendship(ctx, &domain.Friendship{FirstUserID: "1", SecondUserID: "2"}))
	require.NoError(t, s.CreateFriendship(ctx, &domain.Friendship{FirstUserID: "3", SecondUserID: "1"}))

	f, err := s.GetFriendship(ctx, "2", "1")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "2", f.Other("1"))

	friends, err := s.ListFriends(ctx, "1")
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "B", friends[0].FirstName)

	deleted, err := s.DeleteFriendship(ctx, "1", "3")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteFriendship(ctx, "1", "3")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSettingsAndReports(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createUser(t, s, "1", "A")

	got, err := s.GetSettings(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got)

	ns := domain.DefaultNotificationSettings("1", time.Now())
	ns.TodaySubGoalsNotificationsTime = "09:30"
	ns.CustomNotifications = false
	require.NoError(t, s.UpsertSettings(ctx, ns))

	ns.TomorrowSubGoalNotificationsTime = "20:00"
	require.NoError(t, s.UpsertSettings(ctx, ns))

	all, err := s.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "09:30", all[0].TodaySubGoalsNotificationsTime)
	assert.Equal(t, "20:00", all[0].TomorrowSubGoalNotificationsTime)
	assert.False(t, all[0].CustomNotifications)
	assert.True(t, all[0].TodaySubGoalsNotifications)

	week := domain.WeekStart(time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC))
	r := &domain.WeeklyReport{UserID: "1", WeekStart: week, Text: "first"}
	require.NoError(t, s.UpsertWeeklyReport(ctx, r))
	firstID := r.ID
	require.NoError(t, s.UpsertWeeklyReport(ctx, &domain.WeeklyReport{UserID: "1", WeekStart: week, Text: "second"}))
	require.NoError(t, s.UpsertWeeklyReport(ctx, &domain.WeeklyReport{UserID: "1", WeekStart: week.AddDate(0, 0, 7), Text: "next"}))

	reports, err := s.ListWeeklyReports(ctx, "1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "next", reports[0].Text)
	assert.Equal(t, "second", reports[1].Text)
	assert.Equal(t, firstID, reports[1].ID)
}
