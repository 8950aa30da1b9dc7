package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/client/storage"
)

// TokenCookie is the cookie consulted by the route guard.
const TokenCookie = "auth_token"

// CookieMaxAge is the lifetime of the token cookie.
const CookieMaxAge = 7 * 24 * time.Hour

// CookieJar receives the token cookie on login and its expiry on logout.
type CookieJar interface {
	SetToken(token string, expires time.Time)
	ClearToken()
}

// HTTPJar writes the token cookie to an HTTP response.
type HTTPJar struct {
	W      http.ResponseWriter
	Secure bool
}

func (j HTTPJar) SetToken(token string, expires time.Time) {
	http.SetCookie(j.W, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   j.Secure,
	})
}

func (j HTTPJar) ClearToken() {
	http.SetCookie(j.W, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   j.Secure,
	})
}

// storedCookieKey holds the terminal front end's cookie in storage.
const storedCookieKey = "cookie." + TokenCookie

type storedCookie struct {
	Value   string `json:"value"`
	Expires int64  `json:"expires"`
}

// StorageJar keeps the token cookie in durable storage, for front ends
// without a browser.
type StorageJar struct {
	Storage   storage.Storage
	Namespace string
	Log       *zap.Logger
	// Now is used for expiry checks; time.Now when nil.
	Now func() time.Time
}

func (j *StorageJar) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *StorageJar) SetToken(token string, expires time.Time) {
	data, _ := json.Marshal(storedCookie{Value: token, Expires: expires.Unix()})
	if err := j.Storage.Set(context.Background(), j.Namespace, storedCookieKey, string(data)); err != nil && j.Log != nil {
		j.Log.Error("failed to store cookie", zap.Error(err))
	}
}

func (j *StorageJar) ClearToken() {
	if err := j.Storage.Remove(context.Background(), j.Namespace, storedCookieKey); err != nil && j.Log != nil {
		j.Log.Error("failed to clear cookie", zap.Error(err))
	}
}

// HasToken reports whether an unexpired token cookie is stored.
func (j *StorageJar) HasToken(ctx context.Context) bool {
	raw, ok, err := j.Storage.Get(ctx, j.Namespace, storedCookieKey)
	if err != nil || !ok {
		return false
	}
	var c storedCookie
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return false
	}
	return c.Value != "" && j.now().Unix() < c.Expires
}
