package domain

import (
	"fmt"
	"sort"
	"time"
)

// UrgencyLevel is a goal priority.
type UrgencyLevel string

const (
	UrgencyLow     UrgencyLevel = "LOW"
	UrgencyAverage UrgencyLevel = "AVERAGE"
	UrgencyHigh    UrgencyLevel = "HIGH"
)

// Privacy controls whether friends can see a goal.
type Privacy string

const (
	PrivacyPrivate Privacy = "PRIVATE"
	PrivacyPublic  Privacy = "PUBLIC"
)

// DeadlinePreset is the goal horizon chosen by the user.
type DeadlinePreset string

const (
	Deadline3Months DeadlinePreset = "3_MONTHS"
	Deadline6Months DeadlinePreset = "6_MONTHS"
	Deadline1Year   DeadlinePreset = "1_YEAR"
)

// Resolve returns the absolute deadline for the preset counted from now.
func (p DeadlinePreset) Resolve(now time.Time) (time.Time, error) {
	switch p {
	case Deadline3Months:
		return now.AddDate(0, 3, 0), nil
	case Deadline6Months:
		return now.AddDate(0, 6, 0), nil
	case Deadline1Year:
		return now.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown deadline preset %q", p)
	}
}

// PlaceholderImageURL is stored for goals created without an image.
const PlaceholderImageURL = "https://celiscope.ru/placeholder-image.jpg"

// Goal is a user's SMART goal.
type Goal struct {
	ID           int64        `json:"id"`
	UserID       string       `json:"userId"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	UrgencyLevel UrgencyLevel `json:"urgencyLevel"`
	Privacy      Privacy      `json:"privacy"`
	Specific     string       `json:"specific"`
	Measurable   string       `json:"measurable"`
	Attainable   string       `json:"attainable"`
	Relevant     string       `json:"relevant"`
	Award        string       `json:"award"`
	Deadline     time.Time    `json:"deadline"`
	ImageURL     string       `json:"imageUrl"`
	IsCompleted  bool         `json:"isCompleted"`
	CompletedAt  *time.Time   `json:"completedAt"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	SubGoals     []SubGoal    `json:"subGoals"`
}

// Progress returns the number of completed and total sub-goals.
func (g *Goal) Progress() (completed, total int) {
	for _, sg := range g.SubGoals {
		if sg.IsCompleted {
			completed++
		}
	}
	return completed, len(g.SubGoals)
}

// SortSubGoals orders sub-goals by deadline, earliest first.
func (g *Goal) SortSubGoals() {
	sort.SliceStable(g.SubGoals, func(i, j int) bool {
		return g.SubGoals[i].Deadline.Before(g.SubGoals[j].Deadline)
	})
}

// SubGoal is one step of a goal.
type SubGoal struct {
	ID          int64      `json:"id"`
	GoalID      int64      `json:"goalId"`
	Description string     `json:"description"`
	Deadline    time.Time  `json:"deadline"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
