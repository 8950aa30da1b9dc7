package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const clientIDKey ctxKey = "client_id"

// ClientCookie names the cookie identifying a browser.
const ClientCookie = "gophtodo_client"

const clientCookieMaxAge = 365 * 24 * time.Hour

// ClientID makes sure every request carries a client id, issuing a random
// one in a cookie when the browser has none. The id is stored in the
// request context and namespaces the browser's durable storage.
func ClientID(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(ClientCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(clientCookieMaxAge.Seconds()),
					SameSite: http.SameSiteLaxMode,
					HttpOnly: true,
					Secure:   secure,
				})
			}
			ctx := context.WithValue(r.Context(), clientIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIDFromContext extracts the client id stored by ClientID.
// Returns an empty string if not found.
func GetClientIDFromContext(ctx context.Context) string {
	val := ctx.Value(clientIDKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
