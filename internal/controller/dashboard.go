package controller

import (
	"context"

	"github.com/atinyakov/gophtodo/internal/models"
	"github.com/atinyakov/gophtodo/internal/session"
)

// Dashboard shows the signed-in user.
type Dashboard struct {
	store *session.Store
}

func NewDashboard(store *session.Store) *Dashboard {
	return &Dashboard{store: store}
}

// User returns the current user, nil when anonymous.
func (d *Dashboard) User() *models.User {
	return d.store.User()
}

// Logout ends the session. The caller navigates to /login.
func (d *Dashboard) Logout(ctx context.Context, jar session.CookieJar) {
	d.store.Logout(ctx, jar)
}
