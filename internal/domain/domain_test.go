package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadlinePreset_Resolve(t *testing.T) {
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	got, err := Deadline3Months.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 3, 0), got)

	got, err = Deadline1Year.Resolve(now)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())

	_, err = DeadlinePreset("2_WEEKS").Resolve(now)
	assert.Error(t, err)
}

func TestGoal_ProgressAndSort(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	g := Goal{SubGoals: []SubGoal{
		{Description: "c", Deadline: base.AddDate(0, 0, 3), IsCompleted: true},
		{Description: "a", Deadline: base.AddDate(0, 0, 1)},
		{Description: "b", Deadline: base.AddDate(0, 0, 2), IsCompleted: true},
	}}

	done, total := g.Progress()
	assert.Equal(t, 2, done)
	assert.Equal(t, 3, total)

	g.SortSubGoals()
	assert.Equal(t, "a", g.SubGoals[0].Description)
	assert.Equal(t, "c", g.SubGoals[2].Description)
}

func TestFriendship_Other(t *testing.T) {
	f := Friendship{FirstUserID: "1", SecondUserID: "2"}
	assert.Equal(t, "2", f.Other("1"))
	assert.Equal(t, "1", f.Other("2"))
}

func TestNotificationSettingsPatch_Apply(t *testing.T) {
	s := DefaultNotificationSettings("42", time.Now())
	off := false
	at := "08:30"
	NotificationSettingsPatch{TodaySubGoalsNotifications: &off, TodaySubGoalsNotificationsTime: &at}.Apply(s)

	assert.False(t, s.TodaySubGoalsNotifications)
	assert.Equal(t, "08:30", s.TodaySubGoalsNotificationsTime)
	assert.True(t, s.TomorrowSubGoalNotifications)
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), WeekStart(sunday))

	monday := time.Date(2025, 6, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), WeekStart(monday))
}

func TestUser_DisplayNameAndProfile(t *testing.T) {
	u := User{ID: "7", InviteCode: InviteCodeFor("7")}
	assert.Equal(t, DefaultUserName, u.DisplayName())
	assert.Equal(t, "invite_7", u.Profile().InviteCode)
	assert.False(t, u.HasChat())
}
