package controller

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/atinyakov/gophtodo/internal/models"
	"github.com/atinyakov/gophtodo/internal/session"
)

// Validation messages.
const (
	MsgFillAllFields    = "Please fill in all fields"
	MsgPasswordMismatch = "Passwords do not match"
	MsgPasswordTooShort = "Password must be at least 6 characters long"
	MsgInvalidEmail     = "Please enter a valid email address"
	MsgBusy             = "Please wait, signing in is already in progress"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterInput is the content of the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks the rules in order and returns the first violation
// wrapped in ErrValidation.
func (in RegisterInput) Validate() error {
	switch {
	case in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "":
		return invalid(MsgFillAllFields)
	case in.Password != in.ConfirmPassword:
		return invalid(MsgPasswordMismatch)
	case len([]rune(in.Password)) < MinPasswordLength:
		return invalid(MsgPasswordTooShort)
	case !emailRe.MatchString(in.Email):
		return invalid(MsgInvalidEmail)
	}
	return nil
}

// validationError carries the user-facing message of a failed rule.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

func invalid(msg string) error { return &validationError{msg: msg} }

// form is the state shared by the login and registration forms.
type form struct {
	store *session.Store

	mu         sync.Mutex
	validation string
	showError  bool
}

// Message returns the error to display. A validation failure of the last
// submit wins over the session error, which may be left from an earlier
// attempt.
func (f *form) Message() string {
	f.mu.Lock()
	validation := ""
	if f.showError {
		validation = f.validation
	}
	f.mu.Unlock()
	if validation != "" {
		return validation
	}
	return f.store.Err()
}

// Busy reports whether the session is authenticating.
func (f *form) Busy() bool {
	return f.store.State() == session.Loading
}

func (f *form) reset() {
	f.mu.Lock()
	f.validation, f.showError = "", false
	f.mu.Unlock()
}

func (f *form) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showError = true
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		f.validation = verr.msg
	case errors.Is(err, session.ErrBusy):
		f.validation = MsgBusy
	}
}

// RegisterForm controls the registration screen.
type RegisterForm struct {
	form
}

func NewRegisterForm(store *session.Store) *RegisterForm {
	return &RegisterForm{form: form{store: store}}
}

// Submit validates in and, only when valid, registers through the session.
func (f *RegisterForm) Submit(ctx context.Context, in RegisterInput, jar session.CookieJar) error {
	f.reset()
	if err := in.Validate(); err != nil {
		f.setError(err)
		return err
	}
	reg := models.Registration{Username: in.Username, Email: in.Email, Password: in.Password}
	if err := f.store.Register(ctx, reg, jar); err != nil {
		f.setError(err)
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// LoginForm controls the login screen. CallbackURL is where a successful
// login navigates.
type LoginForm struct {
	form
	CallbackURL string
}

func NewLoginForm(store *session.Store, callbackURL string) *LoginForm {
	return &LoginForm{form: form{store: store}, CallbackURL: callbackURL}
}

// Submit requires both fields and logs in through the session.
func (f *LoginForm) Submit(ctx context.Context, creds models.Credentials, jar session.CookieJar) error {
	f.reset()
	if creds.Username == "" || creds.Password == "" {
		err := invalid(MsgFillAllFields)
		f.setError(err)
		return err
	}
	if err := f.store.Login(ctx, creds, jar); err != nil {
		f.setError(err)
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Destination returns the page to open after a successful login: the
// callback when it is a local path, /todos otherwise.
func (f *LoginForm) Destination() string {
	if isLocalPath(f.CallbackURL) {
		return f.CallbackURL
	}
	return "/todos"
}

func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}
