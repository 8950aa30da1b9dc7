// Package session holds the authentication state of one client: the token
// and user persisted in durable storage, mirrored into the auth_token
// cookie, and exposed to views through subscribe/notify.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/client/api"
	"github.com/atinyakov/gophtodo/internal/client/storage"
	"github.com/atinyakov/gophtodo/internal/models"
)

// State is the phase of a session.
type State string

const (
	Anonymous     State = "anonymous"
	Loading       State = "loading"
	Authenticated State = "authenticated"
	Failed        State = "error"
)

// Storage keys.
const (
	KeyToken = "auth_token"
	KeyUser  = "auth_user"
)

// Fallback messages shown when the API gives none.
const (
	msgLoginFailed        = "Login failed"
	msgLoginRetry         = "Login failed. Please try again."
	msgRegistrationFailed = "Registration failed"
	msgRegistrationRetry  = "Registration failed. Please try again."
)

var (
	// ErrBusy is returned when a login or registration is already running.
	ErrBusy = errors.New("session: authentication already in progress")
	// ErrNoToken is returned by operations that need an authenticated session.
	ErrNoToken = errors.New("session: not authenticated")

	errEmptyUser = errors.New("decode user: missing username")
)

// Authenticator is the part of the API client the store calls.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, reg models.Registration) (*api.AuthResult, error)
}

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	State State
	User  *models.User
	Token string
	Err   string
}

// Authenticated reports whether the snapshot carries a usable session.
func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated && s.Token != ""
}

// Store is the session of one storage namespace.
type Store struct {
	auth      Authenticator
	storage   storage.Storage
	namespace string
	log       *zap.Logger

	mu        sync.Mutex
	state     State
	user      *models.User
	token     string
	err       string
	listeners map[int]func(Snapshot)
	nextID    int
}

// New returns an anonymous Store. Call Load to restore a persisted session.
func New(auth Authenticator, st storage.Storage, namespace string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		auth:      auth,
		storage:   st,
		namespace: namespace,
		log:       log,
		state:     Anonymous,
		listeners: make(map[int]func(Snapshot)),
	}
}

// Namespace returns the storage namespace of the store.
func (s *Store) Namespace() string { return s.namespace }

// Load restores the session from storage. A corrupt user record or a read
// failure clears both keys and leaves the store anonymous.
func (s *Store) Load(ctx context.Context) error {
	s.transition(func() { s.state = Loading })

	token, user, err := s.read(ctx)
	if err != nil {
		s.log.Warn("discarding stored session", zap.String("namespace", s.namespace), zap.Error(err))
		if rmErr := s.storage.Remove(ctx, s.namespace, KeyToken, KeyUser); rmErr != nil {
			s.log.Error("failed to clear stored session", zap.Error(rmErr))
		}
		s.transition(func() { s.reset() })
		return err
	}

	s.transition(func() {
		if token != "" && user != nil {
			s.token, s.user, s.state = token, user, Authenticated
			return
		}
		s.reset()
	})
	return nil
}

func (s *Store) read(ctx context.Context) (string, *models.User, error) {
	token, okToken, err := s.storage.Get(ctx, s.namespace, KeyToken)
	if err != nil {
		return "", nil, fmt.Errorf("read token: %w", err)
	}
	raw, okUser, err := s.storage.Get(ctx, s.namespace, KeyUser)
	if err != nil {
		return "", nil, fmt.Errorf("read user: %w", err)
	}
	if !okToken || !okUser {
		return "", nil, nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", nil, fmt.Errorf("decode user: %w", err)
	}
	if user.Username == "" {
		return "", nil, errEmptyUser
	}
	return token, &user, nil
}

// Persisted reports whether the token of the store is still in storage.
func (s *Store) Persisted(ctx context.Context) (bool, error) {
	_, ok, err := s.storage.Get(ctx, s.namespace, KeyToken)
	return ok, err
}

// Login authenticates with the API. On success the token and a user built
// from the username are persisted and written to jar.
func (s *Store) Login(ctx context.Context, creds models.Credentials, jar CookieJar) error {
	if err := s.begin(); err != nil {
		return err
	}
	res, err := s.auth.Login(ctx, creds)
	user := models.User{ID: creds.Username, Username: creds.Username, Email: creds.Username}
	return s.finish(ctx, res, err, user, jar, msgLoginFailed, msgLoginRetry)
}

// Register creates an account. Success is handled like Login, with the
// email taken from the registration.
func (s *Store) Register(ctx context.Context, reg models.Registration, jar CookieJar) error {
	if err := s.begin(); err != nil {
		return err
	}
	res, err := s.auth.Register(ctx, reg)
	user := models.User{ID: reg.Username, Username: reg.Username, Email: reg.Email}
	return s.finish(ctx, res, err, user, jar, msgRegistrationFailed, msgRegistrationRetry)
}

func (s *Store) begin() error {
	s.mu.Lock()
	if s.state == Loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = Loading
	s.err = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) finish(ctx context.Context, res *api.AuthResult, callErr error, user models.User, jar CookieJar, noToken, retry string) error {
	if callErr != nil {
		msg := callErr.Error()
		if msg == "" {
			msg = retry
		}
		s.fail(msg)
		return callErr
	}
	if res == nil || res.Token == "" {
		msg := noToken
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		s.fail(msg)
		return errors.New(msg)
	}

	if err := s.persist(ctx, res.Token, user); err != nil {
		s.log.Error("failed to persist session", zap.String("namespace", s.namespace), zap.Error(err))
		s.fail(retry)
		return err
	}
	if jar != nil {
		jar.SetToken(res.Token, time.Now().Add(CookieMaxAge))
	}

	s.transition(func() {
		s.token, s.user, s.err, s.state = res.Token, &user, "", Authenticated
	})
	return nil
}

func (s *Store) persist(ctx context.Context, token string, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(ctx, s.namespace, KeyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.storage.Set(ctx, s.namespace, KeyUser, string(data)); err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

// Logout forgets the session locally and expires the cookie. The API is
// not contacted.
func (s *Store) Logout(ctx context.Context, jar CookieJar) {
	if err := s.storage.Remove(ctx, s.namespace, KeyToken, KeyUser); err != nil {
		s.log.Error("failed to clear stored session", zap.String("namespace", s.namespace), zap.Error(err))
	}
	if jar != nil {
		jar.ClearToken()
	}
	s.transition(func() { s.reset() })
}

func (s *Store) fail(msg string) {
	s.transition(func() {
		s.state = Failed
		s.err = msg
	})
}

// reset clears all fields. Callers hold mu.
func (s *Store) reset() {
	s.state = Anonymous
	s.user = nil
	s.token = ""
	s.err = ""
}

// transition applies fn under the lock and notifies listeners.
func (s *Store) transition(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Subscribe registers fn for every state change and returns a function
// removing it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Token: s.token, Err: s.err}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *Store) State() State { return s.Snapshot().State }

func (s *Store) User() *models.User { return s.Snapshot().User }

func (s *Store) Token() string { return s.Snapshot().Token }

// Err returns the last authentication error message.
func (s *Store) Err() string { return s.Snapshot().Err }
