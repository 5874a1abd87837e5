package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/celiscope/celiscope/internal/account"
	"github.com/celiscope/celiscope/internal/identity"
	"github.com/celiscope/celiscope/internal/shared"
)

// UserHandler handles profile endpoints.
type UserHandler struct {
	accounts *account.Service
}

// NewUserHandler creates a new user handler.
func NewUserHandler(accounts *account.Service) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// RegisterRoutes registers user routes. All of them require a user.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/user", func(r chi.Router) {
		r.Use(identity.Required)
		r.Get("/me", h.Me)
		r.Put("/edit", h.Edit)
		r.Put("/photo", h.Photo)
		r.Get("/invite/{code}", h.ByInviteCode)
		r.Get("/invite-qr", h.InviteQR)
	})
}

// Me returns the current user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Me(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, user.Profile())
}

// Edit updates the profile names.
func (h *UserHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var in account.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := h.accounts.Edit(r.Context(), identity.UserIDFromContext(r.Context()), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, user.Profile())
}

// Photo replaces the profile photo with the uploaded image.
func (h *UserHandler) Photo(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		WriteError(w, r, err)
		return
	}
	file, err := formFile(r, "image")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if file == nil {
		WriteError(w, r, shared.BadRequest("Изображение обязательно"))
		return
	}
	user, err := h.accounts.SetPhoto(r.Context(), identity.UserIDFromContext(r.Context()), file.data, file.mimeType)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, user.Profile())
}

// ByInviteCode looks a user up by invite code.
func (h *UserHandler) ByInviteCode(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.ByInviteCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, user.Profile())
}

// InviteQR returns a PNG QR code of the current user's invite link.
func (h *UserHandler) InviteQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.accounts.InviteQR(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
