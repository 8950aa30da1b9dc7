// Package http is the server-rendered web front end: chi routes that
// mount view controllers on navigation, reconcile them on form posts and
// render the result as HTML.
package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/middleware"
	"github.com/atinyakov/gophtodo/internal/session"
)

// Handler serves every page of the web front end.
type Handler struct {
	clients *Clients
	pages   map[string]*template.Template
	// secure marks issued cookies Secure.
	secure bool
	log    *zap.Logger
}

// NewHandler parses the embedded templates and returns a Handler.
func NewHandler(clients *Clients, secure bool, log *zap.Logger) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Handler{clients: clients, pages: pages, secure: secure, log: log}, nil
}

// client returns the state of the browser issuing r.
func (h *Handler) client(r *http.Request) (string, *clientState) {
	id := middleware.GetClientIDFromContext(r.Context())
	return id, h.clients.Get(r.Context(), id)
}

// knownClient returns the cached state of the browser issuing r, or nil.
func (h *Handler) knownClient(r *http.Request) *clientState {
	cs, ok := h.clients.Lookup(middleware.GetClientIDFromContext(r.Context()))
	if !ok {
		return nil
	}
	return cs
}

func (h *Handler) jar(w http.ResponseWriter) session.CookieJar {
	return session.HTTPJar{W: w, Secure: h.secure}
}

// requireSession sends browsers whose cookie outlived the server-side
// session back to the login page, expiring the stale cookie and dropping
// the state of the browser.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request, cs *clientState) bool {
	if cs.store.Snapshot().Authenticated() {
		return true
	}
	h.jar(w).ClearToken()
	h.clients.release(middleware.GetClientIDFromContext(r.Context()), cs)
	target := "/login"
	if r.Method == http.MethodGet {
		target = middleware.Decide(r.URL.Path, false).Redirect
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return false
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Root is reached only when the guard lets "/" through, which it never
// does; it falls back to the login page.
func Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}
