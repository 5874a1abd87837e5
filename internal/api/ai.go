package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/celiscope/celiscope/internal/account"
	"github.com/celiscope/celiscope/internal/ai"
	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/identity"
	"github.com/celiscope/celiscope/internal/notify"
	"github.com/celiscope/celiscope/internal/weekly"
)

// Notifier delivers a message to a user's chat and live connections.
type Notifier interface {
	Notify(ctx context.Context, user *domain.User, kind, text string) bool
}

// AIHandler handles the /api/ai/goal endpoints.
type AIHandler struct {
	ai       *ai.Service
	reports  *weekly.Service
	accounts *account.Service
	notifier Notifier
	limit    func(http.Handler) http.Handler
}

// NewAIHandler creates a new AI handler. limit wraps every AI route.
func NewAIHandler(
	svc *ai.Service,
	reports *weekly.Service,
	accounts *account.Service,
	notifier Notifier,
	limit func(http.Handler) http.Handler,
) *AIHandler {
	return &AIHandler{ai: svc, reports: reports, accounts: accounts, notifier: notifier, limit: limit}
}

// RegisterRoutes registers AI routes.
func (h *AIHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/ai/goal", func(r chi.Router) {
		if h.limit != nil {
			r.Use(h.limit)
		}
		r.Post("/description", h.Description)
		r.Post("/tasks", h.Tasks)
		r.Post("/motivation", h.Motivation)
		r.Post("/weekly-report", h.WeeklyReport)
		r.Get("/templates", h.Templates)
		r.Post("/from-template", h.FromTemplate)
		r.Post("/chat", h.Chat)

		r.Group(func(r chi.Router) {
			r.Use(identity.Required)
			r.Get("/weekly-report", h.CurrentWeeklyReport)
			r.Get("/weekly-report/from-db", h.FreshWeeklyReport)
			r.Get("/weekly-reports", h.WeeklyReports)
			r.Post("/trigger-message", h.TriggerMessage)
		})
	})
}

// Description drafts a goal description.
func (h *AIHandler) Description(w http.ResponseWriter, r *http.Request) {
	var in ai.DescriptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := h.ai.GoalDescription(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": res.Text})
}

// Tasks breaks a goal down into steps.
func (h *AIHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	var in ai.TasksInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	tasks, err := h.ai.Tasks(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []ai.TaskItem{}
	}
	JSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Motivation writes a progress message.
func (h *AIHandler) Motivation(w http.ResponseWriter, r *http.Request) {
	var in ai.MotivationInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := h.ai.Motivation(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": res.Text})
}

// WeeklyReport narrates client-supplied weekly data.
func (h *AIHandler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	var in ai.WeeklyReportInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := h.ai.WeeklyReport(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": res.Text})
}

// Templates suggests goal titles.
func (h *AIHandler) Templates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.ai.Templates(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if templates == nil {
		templates = []string{}
	}
	JSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// FromTemplate drafts a goal from a template title.
func (h *AIHandler) FromTemplate(w http.ResponseWriter, r *http.Request) {
	var in ai.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := h.ai.GoalFromTemplate(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Question string `json:"question"`
	Context  struct {
		Goals []ai.ChatGoal `json:"goals"`
	} `json:"context"`
	History []ai.Message `json:"history"`
	Focus   string       `json:"focus"`
}

// Chat answers a question about the supplied goals.
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := h.ai.ChatAboutGoals(r.Context(), ai.ChatInput{
		Question: req.Question,
		Goals:    req.Context.Goals,
		History:  req.History,
		Focus:    req.Focus,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// CurrentWeeklyReport returns the cached report text, generating it once.
func (h *AIHandler) CurrentWeeklyReport(w http.ResponseWriter, r *http.Request) {
	text, err := h.reports.Current(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"text": text})
}

// FreshWeeklyReport always generates a report from the stored goals.
func (h *AIHandler) FreshWeeklyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Fresh(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, report)
}

// WeeklyReports lists stored reports, newest week first.
func (h *AIHandler) WeeklyReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.History(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if reports == nil {
		reports = []*domain.WeeklyReport{}
	}
	JSON(w, http.StatusOK, reports)
}

type triggerRequest struct {
	Type           ai.TriggerType `json:"type"`
	GoalTitle      string         `json:"goalTitle"`
	TaskTitle      string         `json:"taskTitle"`
	TotalTasks     int            `json:"totalTasks"`
	CompletedTasks int            `json:"completedTasks"`
}

// TriggerMessage writes a motivational message for an event and delivers
// it to the user.
func (h *AIHandler) TriggerMessage(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := h.accounts.Me(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := h.ai.TriggerMessage(r.Context(), ai.TriggerInput{
		Type:           req.Type,
		GoalTitle:      req.GoalTitle,
		TaskTitle:      req.TaskTitle,
		TotalTasks:     req.TotalTasks,
		CompletedTasks: req.CompletedTasks,
		UserName:       user.DisplayName(),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sent := h.notifier.Notify(r.Context(), user, notify.KindTrigger, res.Text)
	JSON(w, http.StatusOK, map[string]any{"text": res.Text, "sent": sent})
}
