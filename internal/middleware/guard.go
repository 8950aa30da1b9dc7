// Package middleware provides the HTTP middlewares of the web front end:
// route guarding, per-browser client identification and request logging.
package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/atinyakov/gophtodo/internal/session"
)

var (
	protectedPrefixes = []string{"/dashboard", "/todos"}
	authPrefixes      = []string{"/login", "/register"}
	// unguarded paths are served whatever the session state.
	unguarded = []string{"/health", "/metrics", "/static"}
)

// Decision is the outcome of Decide. An empty Redirect lets the request pass.
type Decision struct {
	Redirect string
}

// Pass reports whether the request proceeds unchanged.
func (d Decision) Pass() bool { return d.Redirect == "" }

// Decide applies the navigation rules to path given whether a session
// cookie is present:
//
//	/                   -> /todos with a session, /login without
//	/dashboard, /todos  -> /login?callbackUrl=<path> without a session
//	/login, /register   -> /todos with a session
func Decide(p string, hasSession bool) Decision {
	if p == "/" {
		if hasSession {
			return Decision{Redirect: "/todos"}
		}
		return Decision{Redirect: "/login"}
	}
	if !hasSession && hasPrefix(p, protectedPrefixes) {
		return Decision{Redirect: "/login?callbackUrl=" + (&url.URL{Path: p}).EscapedPath()}
	}
	if hasSession && hasPrefix(p, authPrefixes) {
		return Decision{Redirect: "/todos"}
	}
	return Decision{}
}

func hasPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// HasSessionCookie reports whether r carries a non-empty auth_token cookie.
func HasSessionCookie(r *http.Request) bool {
	c, err := r.Cookie(session.TokenCookie)
	return err == nil && c.Value != ""
}

// RouteGuard redirects page navigations according to Decide. Only the
// presence of the auth_token cookie is consulted.
func RouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUnguarded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if d := Decide(r.URL.Path, HasSessionCookie(r)); !d.Pass() {
			http.Redirect(w, r, d.Redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isUnguarded matches health, metrics, static assets and any file with an
// extension.
func isUnguarded(p string) bool {
	if path.Ext(p) != "" {
		return true
	}
	return hasPrefix(p, unguarded)
}
