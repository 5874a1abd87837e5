// Package weekly builds and stores weekly progress reports.
package weekly

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/celiscope/celiscope/internal/domain"
)

const (
	window        = 7 * 24 * time.Hour
	maxTaskItems  = 10
	dateLayout    = "2006-01-02"
	isoTimeLayout = "2006-01-02T15:04:05.000Z"
)

// Build summarizes goals for the week ending at now. Active goals become
// progress records; goals completed inside the window are listed apart.
func Build(goals []*domain.Goal, now time.Time) domain.WeeklyData {
	since := now.Add(-window)
	data := domain.WeeklyData{
		GoalsSummary:   []domain.GoalProgress{},
		CompletedGoals: []domain.CompletedGoal{},
	}

	for _, g := range goals {
		if g.IsCompleted {
			if g.CompletedAt != nil && !g.CompletedAt.Before(since) {
				data.CompletedGoals = append(data.CompletedGoals, domain.CompletedGoal{
					Title:       g.Title,
					CompletedAt: g.CompletedAt.UTC().Format(isoTimeLayout),
					CreatedAt:   g.CreatedAt.UTC().Format(isoTimeLayout),
				})
			}
			continue
		}
		data.GoalsSummary = append(data.GoalsSummary, progress(g, now, since))
	}
	return data
}

func progress(g *domain.Goal, now, since time.Time) domain.GoalProgress {
	left := int(math.Max(0, math.Ceil(g.Deadline.Sub(now).Hours()/24)))
	completed, total := g.Progress()

	p := domain.GoalProgress{
		Title:          g.Title,
		CreatedAt:      g.CreatedAt.UTC().Format(dateLayout),
		DeadlineAt:     g.Deadline.UTC().Format(dateLayout),
		TimeLeftDays:   left,
		TimeLeftHuman:  humanizeDays(left),
		Completed:      completed,
		Total:          total,
		CompletedTasks: []domain.CompletedTask{},
		PendingTasks:   []domain.PendingTask{},
	}
	for _, sg := range g.SubGoals {
		switch {
		case sg.IsCompleted:
			if sg.CompletedAt != nil && !sg.CompletedAt.Before(since) && len(p.CompletedTasks) < maxTaskItems {
				p.CompletedTasks = append(p.CompletedTasks, domain.CompletedTask{
					Description:   sg.Description,
					DateCompleted: sg.CompletedAt.UTC().Format(dateLayout),
				})
			}
		case !sg.Deadline.IsZero() && len(p.PendingTasks) < maxTaskItems:
			p.PendingTasks = append(p.PendingTasks, domain.PendingTask{
				Description: sg.Description,
				Deadline:    sg.Deadline.UTC().Format(dateLayout),
			})
		}
	}
	return p
}

// humanizeDays renders a day count as weeks and days in Russian.
func humanizeDays(days int) string {
	if days <= 0 {
		return "0 дней"
	}
	weeks, rest := days/7, days%7
	var parts []string
	if weeks > 0 {
		suffix := "ели"
		if weeks == 1 {
			suffix = "еля"
		}
		parts = append(parts, fmt.Sprintf("%d нед%s", weeks, suffix))
	}
	if rest > 0 {
		parts = append(parts, fmt.Sprintf("%d дн", rest))
	}
	return strings.Join(parts, " ")
}
