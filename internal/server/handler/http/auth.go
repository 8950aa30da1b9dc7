package http

import (
	"net/http"

	"github.com/atinyakov/gophtodo/internal/controller"
	"github.com/atinyakov/gophtodo/internal/models"
)

type loginView struct {
	Username    string
	CallbackURL string
	Error       string
}

type registerView struct {
	Username string
	Email    string
	Error    string
}

// LoginPage handles GET /login. Browsers seen for the first time get no
// state: the page needs none.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	cs := h.knownClient(r)
	h.render(w, cs, "login", "Login", loginView{CallbackURL: r.URL.Query().Get("callbackUrl")})
}

// Login handles POST /login and redirects to the callback on success.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, cs := h.client(r)
	form := controller.NewLoginForm(cs.store, r.PostFormValue("callbackUrl"))
	creds := models.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	if err := form.Submit(r.Context(), creds, h.jar(w)); err != nil {
		h.render(w, cs, "login", "Login", loginView{
			Username:    creds.Username,
			CallbackURL: form.CallbackURL,
			Error:       form.Message(),
		})
		h.clients.release(id, cs)
		return
	}
	http.Redirect(w, r, form.Destination(), http.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	cs := h.knownClient(r)
	h.render(w, cs, "register", "Create an account", registerView{})
}

// Register handles POST /register and opens /todos on success.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, cs := h.client(r)
	form := controller.NewRegisterForm(cs.store)
	in := controller.RegisterInput{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}

	if err := form.Submit(r.Context(), in, h.jar(w)); err != nil {
		h.render(w, cs, "register", "Create an account", registerView{
			Username: in.Username,
			Email:    in.Email,
			Error:    form.Message(),
		})
		h.clients.release(id, cs)
		return
	}
	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

// Dashboard handles GET /dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	_, cs := h.client(r)
	if !h.requireSession(w, r, cs) {
		return
	}
	h.render(w, cs, "dashboard", "Dashboard", controller.NewDashboard(cs.store).User())
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, cs := h.client(r)
	controller.NewDashboard(cs.store).Logout(r.Context(), h.jar(w))
	h.clients.Reset(id)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
