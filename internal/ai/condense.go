package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/celiscope/celiscope/internal/domain"
)

const (
	condenseEntries  = 10
	condenseSubItems = 5
)

var newlineRuns = regexp.MustCompile(`\n+`)

// condenseWeekly turns weekly data into a compact digest: at most 10 goals,
// 5 completed and 5 pending sub-items per goal and 10 completed goals.
func condenseWeekly(in WeeklyReportInput) string {
	var lines []string

	goals := in.GoalsSummary
	if len(goals) > condenseEntries {
		goals = goals[:condenseEntries]
	}
	for i, g := range goals {
		left := g.TimeLeftHuman
		if left == "" {
			left = fmt.Sprintf("%d дн.", g.TimeLeftDays)
		}
		line := fmt.Sprintf("%d. %s [%d/%d] осталось: %s | создана: %s, дедлайн: %s",
			i+1, strings.TrimSpace(g.Title), g.Completed, g.Total, left, g.CreatedAt, g.DeadlineAt)

		var done []string
		for _, t := range firstN(g.CompletedTasks, condenseSubItems) {
			done = append(done, fmt.Sprintf("%s (%s)", t.Description, t.DateCompleted))
		}
		if len(done) > 0 {
			line += " | выполнено: " + strings.Join(done, "; ")
		}

		var pending []string
		for _, t := range firstN(g.PendingTasks, condenseSubItems) {
			pending = append(pending, fmt.Sprintf("%s (до %s)", t.Description, t.Deadline))
		}
		if len(pending) > 0 {
			line += " | в работе: " + strings.Join(pending, "; ")
		}
		lines = append(lines, line)
	}

	if len(in.CompletedGoals) > 0 {
		var cg []string
		for _, c := range firstN(in.CompletedGoals, condenseEntries) {
			cg = append(cg, fmt.Sprintf("%s (завершена %s, создана %s)", c.Title, c.CompletedAt, c.CreatedAt))
		}
		lines = append(lines, "Завершённые цели: "+strings.Join(cg, "; "))
	}
	return strings.Join(lines, "\n")
}

// condenseGoals renders at most 10 goals with up to 5 sub-goals each.
func condenseGoals(goals []ChatGoal) string {
	if len(goals) == 0 {
		return noValue
	}
	lines := make([]string, 0, condenseEntries)
	for i, g := range firstN(goals, condenseEntries) {
		urgency := g.UrgencyLevel
		if urgency == "" {
			urgency = string(domain.UrgencyLow)
		}
		deadline := noGoalDeadline
		if g.Deadline != nil && !g.Deadline.IsZero() {
			deadline = g.Deadline.Format("02.01.2006")
		}

		progress := ""
		if total := len(g.SubGoals); total > 0 {
			done := 0
			for _, sg := range g.SubGoals {
				if sg.IsCompleted {
					done++
				}
			}
			progress = fmt.Sprintf("(%d/%d)", done, total)
		}

		var subs []string
		for _, s := range firstN(g.SubGoals, condenseSubItems) {
			mark := "[ ]"
			if s.IsCompleted {
				mark = "[✓]"
			}
			subs = append(subs, strings.TrimSpace(mark+" "+s.Description))
		}

		status := "[АКТИВНА]"
		if g.IsCompleted {
			status = "[ЗАВЕРШЕНА]"
		}

		description := strings.TrimSpace(newlineRuns.ReplaceAllString(g.Description, " "))
		line := fmt.Sprintf("%d. %s %s %s | Приоритет: %s | Дедлайн: %s | %s",
			i+1, strings.TrimSpace(g.Title), status, progress, urgency, deadline, description)
		if len(subs) > 0 {
			line += " | Подзадачи: " + strings.Join(subs, "; ")
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
