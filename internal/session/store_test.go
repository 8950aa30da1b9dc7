package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/gophtodo/internal/client/api"
	"github.com/atinyakov/gophtodo/internal/client/storage"
	"github.com/atinyakov/gophtodo/internal/models"
)

type fakeAuth struct {
	mu       sync.Mutex
	result   *api.AuthResult
	err      error
	calls    int
	lastReg  models.Registration
	lastCred models.Credentials
	// block, when set, holds the call until closed.
	block chan struct{}
}

func (f *fakeAuth) Login(ctx context.Context, creds models.Credentials) (*api.AuthResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastCred = creds
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.result, f.err
}

func (f *fakeAuth) Register(ctx context.Context, reg models.Registration) (*api.AuthResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastReg = reg
	f.mu.Unlock()
	return f.result, f.err
}

type fakeJar struct {
	token   string
	expires time.Time
	cleared bool
}

func (j *fakeJar) SetToken(token string, expires time.Time) {
	j.token, j.expires = token, expires
}

func (j *fakeJar) ClearToken() {
	j.token = ""
	j.cleared = true
}

func newStore(auth Authenticator) (*Store, *storage.MemoryStorage) {
	st := storage.NewMemoryStorage()
	return New(auth, st, "client-1", nil), st
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{result: &api.AuthResult{StatusCode: 200, Token: "tok-1"}}
	s, st := newStore(auth)
	jar := &fakeJar{}

	var states []State
	unsubscribe := s.Subscribe(func(snap Snapshot) { states = append(states, snap.State) })
	defer unsubscribe()

	require.Equal(t, Anonymous, s.State())
	require.NoError(t, s.Login(ctx, models.Credentials{Username: "alice", Password: "secret1"}, jar))

	assert.Equal(t, []State{Loading, Authenticated}, states)
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, "tok-1", s.Token())
	assert.Equal(t, &models.User{ID: "alice", Username: "alice", Email: "alice"}, s.User())
	assert.Empty(t, s.Err())

	tok, ok, _ := st.Get(ctx, "client-1", KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)
	rawUser, ok, _ := st.Get(ctx, "client-1", KeyUser)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"alice","username":"alice","email":"alice"}`, rawUser)

	assert.Equal(t, "tok-1", jar.token)
	assert.WithinDuration(t, time.Now().Add(CookieMaxAge), jar.expires, time.Minute)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		result  *api.AuthResult
		err     error
		wantMsg string
	}{
		{name: "no token with message", result: &api.AuthResult{Message: "bad credentials"}, wantMsg: "bad credentials"},
		{name: "no token without message", result: &api.AuthResult{}, wantMsg: "Login failed"},
		{name: "api error", err: &api.Error{Status: 401, Message: "unauthorized"}, wantMsg: "unauthorized"},
		{name: "empty error", err: errors.New(""), wantMsg: "Login failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, st := newStore(&fakeAuth{result: tt.result, err: tt.err})
			jar := &fakeJar{}

			err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "x"}, jar)
			require.Error(t, err)
			assert.Equal(t, Failed, s.State())
			assert.Equal(t, tt.wantMsg, s.Err())
			assert.Empty(t, s.Token())
			assert.Empty(t, jar.token)
			_, ok, _ := st.Get(context.Background(), "client-1", KeyToken)
			assert.False(t, ok)
		})
	}
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	auth := &fakeAuth{result: &api.AuthResult{Message: "nope"}}
	s, _ := newStore(auth)
	require.Error(t, s.Login(context.Background(), models.Credentials{Username: "a"}, nil))
	require.Equal(t, "nope", s.Err())

	var sawCleared bool
	s.Subscribe(func(snap Snapshot) {
		if snap.State == Loading && snap.Err == "" {
			sawCleared = true
		}
	})
	auth.result = &api.AuthResult{Token: "t"}
	require.NoError(t, s.Login(context.Background(), models.Credentials{Username: "a"}, nil))
	assert.True(t, sawCleared)
	assert.Empty(t, s.Err())
}

func TestLogin_ConcurrentIsBusy(t *testing.T) {
	auth := &fakeAuth{result: &api.AuthResult{Token: "t"}, block: make(chan struct{})}
	s, _ := newStore(auth)

	done := make(chan error, 1)
	go func() {
		done <- s.Login(context.Background(), models.Credentials{Username: "a"}, nil)
	}()
	require.Eventually(t, func() bool { return s.State() == Loading }, time.Second, time.Millisecond)

	err := s.Login(context.Background(), models.Credentials{Username: "b"}, nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(auth.block)
	require.NoError(t, <-done)
	assert.Equal(t, Authenticated, s.State())
	assert.Equal(t, 1, auth.calls)
}

func TestRegister_Success(t *testing.T) {
	auth := &fakeAuth{result: &api.AuthResult{Token: "tok-r"}}
	s, _ := newStore(auth)
	reg := models.Registration{Username: "bob", Email: "bob@example.com", Password: "secret1"}

	require.NoError(t, s.Register(context.Background(), reg, nil))
	assert.Equal(t, reg, auth.lastReg)
	assert.Equal(t, &models.User{ID: "bob", Username: "bob", Email: "bob@example.com"}, s.User())
}

func TestRegister_FallbackMessages(t *testing.T) {
	s, _ := newStore(&fakeAuth{result: &api.AuthResult{}})
	require.Error(t, s.Register(context.Background(), models.Registration{Username: "bob"}, nil))
	assert.Equal(t, "Registration failed", s.Err())

	s, _ = newStore(&fakeAuth{err: errors.New("")})
	require.Error(t, s.Register(context.Background(), models.Registration{Username: "bob"}, nil))
	assert.Equal(t, "Registration failed. Please try again.", s.Err())
}

func TestLogout_FromAnyState(t *testing.T) {
	ctx := context.Background()
	for _, start := range []string{"authenticated", "error", "anonymous"} {
		t.Run(start, func(t *testing.T) {
			auth := &fakeAuth{result: &api.AuthResult{Token: "tok"}}
			s, st := newStore(auth)
			switch start {
			case "authenticated":
				require.NoError(t, s.Login(ctx, models.Credentials{Username: "a"}, nil))
			case "error":
				auth.result = &api.AuthResult{}
				require.Error(t, s.Login(ctx, models.Credentials{Username: "a"}, nil))
			}

			jar := &fakeJar{token: "tok"}
			s.Logout(ctx, jar)

			assert.Equal(t, Snapshot{State: Anonymous}, s.Snapshot())
			assert.True(t, jar.cleared)
			_, ok, _ := st.Get(ctx, "client-1", KeyToken)
			assert.False(t, ok)
			_, ok, _ = st.Get(ctx, "client-1", KeyUser)
			assert.False(t, ok)
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("restores session", func(t *testing.T) {
		s, st := newStore(&fakeAuth{})
		require.NoError(t, st.Set(ctx, "client-1", KeyToken, "tok"))
		require.NoError(t, st.Set(ctx, "client-1", KeyUser, `{"id":"alice","username":"alice","email":"a@x.io"}`))

		require.NoError(t, s.Load(ctx))
		assert.Equal(t, Authenticated, s.State())
		assert.Equal(t, "a@x.io", s.User().Email)
	})

	t.Run("token only", func(t *testing.T) {
		s, st := newStore(&fakeAuth{})
		require.NoError(t, st.Set(ctx, "client-1", KeyToken, "tok"))
		require.NoError(t, s.Load(ctx))
		assert.Equal(t, Anonymous, s.State())
		assert.Empty(t, s.Token())
	})

	for name, raw := range map[string]string{
		"corrupt user": "{broken",
		"null user":    "null",
		"empty user":   "{}",
		"no username":  `{"id":"alice","email":"a@x.io"}`,
	} {
		t.Run(name, func(t *testing.T) {
			s, st := newStore(&fakeAuth{})
			require.NoError(t, st.Set(ctx, "client-1", KeyToken, "tok"))
			require.NoError(t, st.Set(ctx, "client-1", KeyUser, raw))

			require.Error(t, s.Load(ctx))
			assert.Equal(t, Anonymous, s.State())
			assert.Nil(t, s.User())
			_, ok, _ := st.Get(ctx, "client-1", KeyToken)
			assert.False(t, ok)
			_, ok, _ = st.Get(ctx, "client-1", KeyUser)
			assert.False(t, ok)
		})
	}
}

func TestPersisted(t *testing.T) {
	ctx := context.Background()
	s, st := newStore(&fakeAuth{result: &api.AuthResult{Token: "t"}})

	ok, err := s.Persisted(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Login(ctx, models.Credentials{Username: "a"}, nil))
	ok, err = s.Persisted(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = st.Purge(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	ok, err = s.Persisted(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.Snapshot().Authenticated(), "purge does not touch the cached state")
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	s, _ := newStore(&fakeAuth{result: &api.AuthResult{Token: "t"}})
	calls := 0
	unsubscribe := s.Subscribe(func(Snapshot) { calls++ })
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.Login(context.Background(), models.Credentials{Username: "a"}, nil))
	assert.Zero(t, calls)
}

func TestSnapshot_IsCopy(t *testing.T) {
	s, _ := newStore(&fakeAuth{result: &api.AuthResult{Token: "t"}})
	require.NoError(t, s.Login(context.Background(), models.Credentials{Username: "a"}, nil))

	snap := s.Snapshot()
	snap.User.Username = "mallory"
	assert.Equal(t, "a", s.User().Username)
	assert.True(t, snap.Authenticated())
}

func TestHTTPJar(t *testing.T) {
	rec := httptest.NewRecorder()
	jar := HTTPJar{W: rec}
	jar.SetToken("tok", time.Now().Add(CookieMaxAge))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, TokenCookie, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.InDelta(t, CookieMaxAge.Seconds(), c.MaxAge, 5)

	rec = httptest.NewRecorder()
	HTTPJar{W: rec, Secure: true}.ClearToken()
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
}

func TestStorageJar(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	jar := &StorageJar{Storage: storage.NewMemoryStorage(), Namespace: "tui", Now: func() time.Time { return now }}

	assert.False(t, jar.HasToken(ctx))
	jar.SetToken("tok", now.Add(CookieMaxAge))
	assert.True(t, jar.HasToken(ctx))

	now = now.Add(CookieMaxAge + time.Second)
	assert.False(t, jar.HasToken(ctx), "expired cookie")

	jar.SetToken("tok", now.Add(time.Hour))
	jar.ClearToken()
	assert.False(t, jar.HasToken(ctx))
}

func TestManager_LoadsOncePerNamespace(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.Set(ctx, "b1", KeyToken, "tok"))
	require.NoError(t, st.Set(ctx, "b1", KeyUser, `{"id":"alice","username":"alice","email":"alice"}`))
	m := NewManager(&fakeAuth{}, st, nil)

	s1 := m.Get(ctx, "b1")
	assert.Equal(t, Authenticated, s1.State())
	assert.Same(t, s1, m.Get(ctx, "b1"))

	s2 := m.Get(ctx, "b2")
	assert.NotSame(t, s1, s2)
	assert.Equal(t, Anonymous, s2.State())
	assert.Equal(t, 2, m.Len())

	m.Forget("b1")
	assert.Equal(t, 1, m.Len())
	assert.NotSame(t, s1, m.Get(ctx, "b1"))
}

// gatedStorage holds reads of namespace gated until release is closed.
type gatedStorage struct {
	*storage.MemoryStorage
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStorage) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if namespace == g.gated {
		select {
		case g.entered <- struct{}{}:
		default:
		}
		<-g.release
	}
	return g.MemoryStorage.Get(ctx, namespace, key)
}

func TestManager_LoadDoesNotBlockOtherNamespaces(t *testing.T) {
	ctx := context.Background()
	st := &gatedStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		gated:         "slow",
		entered:       make(chan struct{}, 1),
		release:       make(chan struct{}),
	}
	m := NewManager(&fakeAuth{}, st, nil)

	slow := make(chan *Store)
	go func() { slow <- m.Get(ctx, "slow") }()
	<-st.entered

	fast := make(chan *Store)
	go func() { fast <- m.Get(ctx, "fast") }()
	select {
	case s := <-fast:
		assert.Equal(t, Anonymous, s.State())
	case <-time.After(2 * time.Second):
		t.Fatal("Get of another namespace waited for a pending load")
	}

	close(st.release)
	s := <-slow
	assert.Same(t, s, m.Get(ctx, "slow"))
	assert.Equal(t, 2, m.Len())
}

func TestManager_ConcurrentGetSharesStore(t *testing.T) {
	ctx := context.Background()
	m := NewManager(&fakeAuth{}, storage.NewMemoryStorage(), nil)

	const n = 16
	stores := make([]*Store, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stores[i] = m.Get(ctx, "b1")
		}()
	}
	wg.Wait()

	cached := m.Get(ctx, "b1")
	for _, s := range stores {
		assert.Same(t, cached, s)
	}
	assert.Equal(t, 1, m.Len())
}
