package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/goal"
	"github.com/celiscope/celiscope/internal/identity"
)

// GoalHandler handles goal and sub-goal endpoints.
type GoalHandler struct {
	goals *goal.Service
}

// NewGoalHandler creates a new goal handler.
func NewGoalHandler(goals *goal.Service) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// RegisterRoutes registers goal routes. All of them require a user.
func (h *GoalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/goal", func(r chi.Router) {
		r.Use(identity.Required)
		r.Post("/create", h.Create)
		r.Post("/create-from-template", h.CreateFromTemplate)
		r.Get("/", h.List)
		r.Get("/friends", h.ListFriends)
		r.Post("/sub-goal/{id}/complete", h.CompleteSubGoal)
		r.Post("/sub-goal/{id}/uncomplete", h.UncompleteSubGoal)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/complete", h.Complete)
	})
}

// Create creates a goal from the multipart "info" field and optional "image".
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// CreateFromTemplate creates a goal with template validation regardless of
// the submitted source.
func (h *GoalHandler) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *GoalHandler) create(w http.ResponseWriter, r *http.Request, fromTemplate bool) {
	img, err := goalImage(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	in, err := goal.DecodeCreate(r.FormValue("info"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if fromTemplate {
		in.Source = goal.SourceTemplate
	}
	g, err := h.goals.Create(r.Context(), identity.UserIDFromContext(r.Context()), in, img)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, g)
}

// List returns the current user's goals.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.List(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, goals)
}

// ListFriends returns the public goals of the current user's friends.
func (h *GoalHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goals.ListFriends(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, goals)
}

// Get returns one goal.
func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id", "Invalid goal ID")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	g, err := h.goals.Get(r.Context(), identity.UserIDFromContext(r.Context()), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, g)
}

// Update applies a partial update from the multipart "info" field.
func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id", "Invalid goal ID")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	img, err := goalImage(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	in, err := goal.DecodeUpdate(r.FormValue("info"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	g, err := h.goals.Update(r.Context(), identity.UserIDFromContext(r.Context()), id, in, img)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, g)
}

// Complete marks a goal as done. A photo of the result is required.
func (h *GoalHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id", "Invalid goal ID")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	img, err := goalImage(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	g, err := h.goals.Complete(r.Context(), identity.UserIDFromContext(r.Context()), id, img)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, g)
}

// CompleteSubGoal marks a sub-goal as done.
func (h *GoalHandler) CompleteSubGoal(w http.ResponseWriter, r *http.Request) {
	h.setSubGoal(w, r, h.goals.CompleteSubGoal)
}

// UncompleteSubGoal marks a sub-goal as not done.
func (h *GoalHandler) UncompleteSubGoal(w http.ResponseWriter, r *http.Request) {
	h.setSubGoal(w, r, h.goals.UncompleteSubGoal)
}

func (h *GoalHandler) setSubGoal(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, userID string, subGoalID int64) (*domain.SubGoal, error),
) {
	id, err := idParam(r, "id", "Invalid sub-goal ID")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sg, err := set(r.Context(), identity.UserIDFromContext(r.Context()), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, sg)
}

func goalImage(w http.ResponseWriter, r *http.Request) (*goal.Image, error) {
	if err := parseMultipart(w, r); err != nil {
		return nil, err
	}
	file, err := formFile(r, "image")
	if err != nil || file == nil {
		return nil, err
	}
	return &goal.Image{Data: file.data, MIMEType: file.mimeType}, nil
}
