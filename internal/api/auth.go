package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/celiscope/celiscope/internal/auth"
)

const refreshCookie = "refreshToken"

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles Telegram login and token refresh.
type AuthHandler struct {
	auth   *auth.Service
	cookie CookieConfig
	now    func() time.Time
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *auth.Service, cookie CookieConfig) *AuthHandler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 30 * 24 * time.Hour
	}
	return &AuthHandler{auth: svc, cookie: cookie, now: time.Now}
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/telegram", h.Telegram)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})
}

// Telegram logs a mini-app user in.
func (h *AuthHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.setCookie(w, session.RefreshToken)
	JSON(w, http.StatusOK, session)
}

// Refresh rotates the refresh token from the cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}
	session, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.setCookie(w, session.RefreshToken)
	JSON(w, http.StatusOK, session)
}

// Logout revokes the cookie's refresh token and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(refreshCookie); err == nil {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			WriteError(w, r, err)
			return
		}
	}
	cookie := h.baseCookie()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, token string) {
	cookie := h.baseCookie()
	cookie.Value = token
	cookie.Expires = h.now().Add(h.cookie.MaxAge)
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) baseCookie() *http.Cookie {
	c := &http.Cookie{
		Name:     refreshCookie,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   h.cookie.Secure,
	}
	if h.cookie.Secure {
		c.Domain = h.cookie.Domain
	}
	return c
}
