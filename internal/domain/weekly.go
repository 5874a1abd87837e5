package domain

import "time"

// CompletedTask is a sub-goal finished inside the report window.
type CompletedTask struct {
	Description   string `json:"description"`
	DateCompleted string `json:"dateCompleted"`
}

// PendingTask is an open sub-goal with a deadline.
type PendingTask struct {
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

// GoalProgress summarizes an active goal for the weekly report.
type GoalProgress struct {
	Title          string          `json:"title"`
	CreatedAt      string          `json:"createdAt"`
	DeadlineAt     string          `json:"deadlineAt"`
	TimeLeftDays   int             `json:"timeLeftDays"`
	TimeLeftHuman  string          `json:"timeLeftHuman"`
	Completed      int             `json:"completed"`
	Total          int             `json:"total"`
	CompletedTasks []CompletedTask `json:"completedTasks"`
	PendingTasks   []PendingTask   `json:"pendingTasks"`
}

// CompletedGoal is a goal finished inside the report window.
type CompletedGoal struct {
	Title       string `json:"title"`
	CompletedAt string `json:"completedAt"`
	CreatedAt   string `json:"createdAt"`
}

// WeeklyData is the input the weekly report is narrated from.
type WeeklyData struct {
	GoalsSummary   []GoalProgress  `json:"goalsSummary"`
	CompletedGoals []CompletedGoal `json:"completedGoals"`
}

// WeeklyReport is a stored weekly report. There is at most one per user
// and week.
type WeeklyReport struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	WeekStart time.Time `json:"weekStart"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
