package domain

import "time"

// Friendship links two users. The pair is unordered.
type Friendship struct {
	FirstUserID  string    `json:"firstUserId"`
	SecondUserID string    `json:"secondUserId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Other returns the friend of userID in this friendship.
func (f *Friendship) Other(userID string) string {
	if f.FirstUserID == userID {
		return f.SecondUserID
	}
	return f.FirstUserID
}

// NotificationSettings are a user's Telegram reminder preferences.
// Times are "HH:MM" in server time; an empty time disables scheduling.
type NotificationSettings struct {
	UserID                               string    `json:"userId"`
	TodaySubGoalsNotifications           bool      `json:"todaySubGoalsNotifications"`
	TomorrowSubGoalNotifications         bool      `json:"tomorrowSubGoalNotifications"`
	MonthlyGoalDeadlineNotifications     bool      `json:"monthlyGoalDeadlineNotifications"`
	CustomNotifications                  bool      `json:"customNotifications"`
	TodaySubGoalsNotificationsTime       string    `json:"todaySubGoalsNotificationsTime"`
	TomorrowSubGoalNotificationsTime     string    `json:"tomorrowSubGoalNotificationsTime"`
	MonthlyGoalDeadlineNotificationsTime string    `json:"monthlyGoalDeadlineNotificationsTime"`
	CustomNotificationsTime              string    `json:"customNotificationsTime"`
	CreatedAt                            time.Time `json:"createdAt"`
	UpdatedAt                            time.Time `json:"updatedAt"`
}

// DefaultNotificationSettings returns the settings created on first read.
func DefaultNotificationSettings(userID string, now time.Time) *NotificationSettings {
	return &NotificationSettings{
		UserID:                           userID,
		TodaySubGoalsNotifications:       true,
		TomorrowSubGoalNotifications:     true,
		MonthlyGoalDeadlineNotifications: true,
		CustomNotifications:              true,
		CreatedAt:                        now,
		UpdatedAt:                        now,
	}
}

// NotificationSettingsPatch holds the fields of a partial settings update.
// Nil fields are left unchanged.
type NotificationSettingsPatch struct {
	TodaySubGoalsNotifications           *bool   `json:"todaySubGoalsNotifications"`
	TomorrowSubGoalNotifications         *bool   `json:"tomorrowSubGoalNotifications"`
	MonthlyGoalDeadlineNotifications     *bool   `json:"monthlyGoalDeadlineNotifications"`
	CustomNotifications                  *bool   `json:"customNotifications"`
	TodaySubGoalsNotificationsTime       *string `json:"todaySubGoalsNotificationsTime" validate:"omitempty,hhmm"`
	TomorrowSubGoalNotificationsTime     *string `json:"tomorrowSubGoalNotificationsTime" validate:"omitempty,hhmm"`
	MonthlyGoalDeadlineNotificationsTime *string `json:"monthlyGoalDeadlineNotificationsTime" validate:"omitempty,hhmm"`
	CustomNotificationsTime              *string `json:"customNotificationsTime" validate:"omitempty,hhmm"`
}

// Apply copies the non-nil fields of p onto s.
func (p NotificationSettingsPatch) Apply(s *NotificationSettings) {
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setBool(&s.TodaySubGoalsNotifications, p.TodaySubGoalsNotifications)
	setBool(&s.TomorrowSubGoalNotifications, p.TomorrowSubGoalNotifications)
	setBool(&s.MonthlyGoalDeadlineNotifications, p.MonthlyGoalDeadlineNotifications)
	setBool(&s.CustomNotifications, p.CustomNotifications)
	setString(&s.TodaySubGoalsNotificationsTime, p.TodaySubGoalsNotificationsTime)
	setString(&s.TomorrowSubGoalNotificationsTime, p.TomorrowSubGoalNotificationsTime)
	setString(&s.MonthlyGoalDeadlineNotificationsTime, p.MonthlyGoalDeadlineNotificationsTime)
	setString(&s.CustomNotificationsTime, p.CustomNotificationsTime)
}
