package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/celiscope/celiscope/internal/account"
	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/identity"
)

// FriendshipHandler handles friendship endpoints.
type FriendshipHandler struct {
	friends *account.Friendships
}

// NewFriendshipHandler creates a new friendship handler.
func NewFriendshipHandler(friends *account.Friendships) *FriendshipHandler {
	return &FriendshipHandler{friends: friends}
}

// RegisterRoutes registers friendship routes.
func (h *FriendshipHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/friendship", func(r chi.Router) {
		r.Use(identity.Required)
		r.Get("/", h.List)
		r.Post("/add", h.Add)
		r.Delete("/{friendId}", h.Remove)
	})
}

// List returns the current user's friends.
func (h *FriendshipHandler) List(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friends.List(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if friends == nil {
		friends = []domain.Profile{}
	}
	JSON(w, http.StatusOK, friends)
}

// Add befriends the user behind an invite code or ID.
func (h *FriendshipHandler) Add(w http.ResponseWriter, r *http.Request) {
	var in account.AddFriendInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	f, err := h.friends.Add(r.Context(), identity.UserIDFromContext(r.Context()), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, f)
}

// Remove ends a friendship.
func (h *FriendshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.friends.Remove(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "friendId"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Дружба удалена"})
}

// SettingsHandler handles notification settings endpoints.
type SettingsHandler struct {
	settings *account.Settings
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings *account.Settings) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// RegisterRoutes registers settings routes.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/settings", func(r chi.Router) {
		r.Use(identity.Required)
		r.Get("/", h.Get)
		r.Put("/edit", h.Edit)
	})
}

// Get returns the current user's settings, creating defaults on first read.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s)
}

// Edit applies a partial settings update.
func (h *SettingsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var patch domain.NotificationSettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, r, err)
		return
	}
	s, err := h.settings.Update(r.Context(), identity.UserIDFromContext(r.Context()), patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, s)
}
