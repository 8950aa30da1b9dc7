package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/metrics"
	"github.com/atinyakov/gophtodo/internal/middleware"
)

// NewRouter constructs the web front end.
//
// Routes:
//
//	GET  /health, /metrics, /static/*
//	GET  /                                  → guard redirect
//	GET  /login, /register                  → forms
//	POST /login, /register, /logout
//	GET  /dashboard
//	GET  /todos, POST /todos                → list, create
//	POST /todos/{id}/delete
//	GET  /todos/{id}                        → detail
//	POST /todos/{id}/items                  → add item
//	POST /todos/{id}/items/{itemID}/toggle|delete|edit|rename
//
// Middleware chain (applied in order):
//  1. Recoverer
//  2. RequestID
//  3. ClientID(secure): per-browser storage namespace
//  4. WithRequestLogging(logger)
//  5. metrics
//  6. RouteGuard: auth_token cookie redirects
func NewRouter(h *Handler, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.ClientID(h.secure))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(m.Middleware)
	r.Use(middleware.RouteGuard)

	r.Get("/health", Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	r.Handle("/static/*", staticHandler())

	r.Get("/", Root)
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)
	r.Post("/logout", h.Logout)
	r.Get("/dashboard", h.Dashboard)

	r.Route("/todos", func(r chi.Router) {
		r.Get("/", h.Todos)
		r.Post("/", h.CreateTodo)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.TodoDetail)
			r.Post("/delete", h.DeleteTodo)
			r.Post("/items", h.AddItem)
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Post("/toggle", h.ToggleItem)
				r.Post("/delete", h.DeleteItem)
				r.Post("/edit", h.EditItem)
				r.Post("/rename", h.RenameItem)
			})
		})
	})

	return r
}
