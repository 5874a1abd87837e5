package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/celiscope/celiscope/internal/identity"
	"github.com/celiscope/celiscope/internal/middleware"
)

// RouteRegistrar is implemented by every handler group.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// RouterConfig holds what the router needs besides the handler groups.
type RouterConfig struct {
	Tokens      identity.TokenParser
	CORSOrigins []string
	// Notifications serves the websocket endpoint when set.
	Notifications http.Handler
}

// NewRouter assembles the API with its global middleware.
func NewRouter(cfg RouterConfig, groups ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(identity.Middleware(cfg.Tokens))

	for _, g := range groups {
		g.RegisterRoutes(r)
	}
	if cfg.Notifications != nil {
		r.Get("/ws/notifications", cfg.Notifications.ServeHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
