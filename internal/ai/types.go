package ai

import (
	"time"

	"github.com/celiscope/celiscope/internal/domain"
)

// TaskItem is one generated step. Deadline is an ISO-8601 timestamp when
// the model supplied one.
type TaskItem struct {
	Description string  `json:"description"`
	Deadline    *string `json:"deadline,omitempty"`
}

// DescriptionInput is the input of GoalDescription.
type DescriptionInput struct {
	Title   string `json:"title"`
	Context string `json:"context"`
}

// TasksInput is the input of Tasks. MaxItems <= 0 means 6.
type TasksInput struct {
	Title    string `json:"title"`
	Context  string `json:"context"`
	MaxItems int    `json:"maxItems"`
	Deadline string `json:"deadline"`
}

// MotivationInput is the input of Motivation.
type MotivationInput struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// WeeklyReportInput is the input of WeeklyReport.
type WeeklyReportInput struct {
	UserName       string                 `json:"userName"`
	GoalsSummary   []domain.GoalProgress  `json:"goalsSummary"`
	CompletedGoals []domain.CompletedGoal `json:"completedGoals"`
}

// TemplateInput is the input of GoalFromTemplate.
type TemplateInput struct {
	Template         string `json:"template"`
	Deadline         string `json:"deadline"`
	MaxItems         int    `json:"maxItems"`
	Context          string `json:"context"`
	ShortDescription string `json:"shortDescription"`
}

// GoalFromTemplateResult is a goal drafted from a template.
type GoalFromTemplateResult struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tasks       []TaskItem `json:"tasks"`
}

// ChatSubGoal is a sub-goal as seen by the goal chat.
type ChatSubGoal struct {
	Description string `json:"description"`
	IsCompleted bool   `json:"isCompleted"`
}

// ChatGoal is a goal supplied as chat context.
type ChatGoal struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	UrgencyLevel string        `json:"urgencyLevel"`
	Privacy      string        `json:"privacy"`
	IsCompleted  bool          `json:"isCompleted"`
	Deadline     *time.Time    `json:"deadline"`
	SubGoals     []ChatSubGoal `json:"subGoals"`
}

// ChatInput is the input of ChatAboutGoals.
type ChatInput struct {
	Question string
	Goals    []ChatGoal
	History  []Message
	Focus    string
}

// ChatResult is the reply of ChatAboutGoals. SelectedGoalTitle is a best
// effort guess of the goal the reply is about.
type ChatResult struct {
	Text              string `json:"text"`
	SelectedGoalTitle string `json:"selectedGoalTitle,omitempty"`
}

// TriggerType selects the prompt of a trigger message.
type TriggerType string

const (
	TriggerHalfDone      TriggerType = "HALF_DONE"
	TriggerTaskOverdue   TriggerType = "TASK_OVERDUE"
	TriggerFirstTaskDone TriggerType = "FIRST_TASK_DONE"
	TriggerGoalOverdue   TriggerType = "GOAL_OVERDUE"
	TriggerGoalCompleted TriggerType = "GOAL_COMPLETED"
)

// TriggerInput is the input of TriggerMessage.
type TriggerInput struct {
	Type           TriggerType `json:"type"`
	GoalTitle      string      `json:"goalTitle"`
	TaskTitle      string      `json:"taskTitle"`
	TotalTasks     int         `json:"totalTasks"`
	CompletedTasks int         `json:"completedTasks"`
	UserName       string      `json:"userName"`
}
