// Package tui is the terminal front end: a bubbletea program that drives
// the session store and view controllers from the keyboard. The token
// cookie lives in durable storage and navigation goes through the same
// route guard rules as the browser.
package tui

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/client/storage"
	"github.com/atinyakov/gophtodo/internal/controller"
	"github.com/atinyakov/gophtodo/internal/middleware"
	"github.com/atinyakov/gophtodo/internal/session"
)

// Namespace is the storage namespace of the terminal front end.
const Namespace = "tui"

const toastQueueSize = 8

type screen int

const (
	screenLogin screen = iota
	screenRegister
	screenTodos
	screenDetail
	screenDashboard
)

// navigateMsg asks for a screen change to path.
type navigateMsg struct{ path string }

// doneMsg reports that a controller call finished.
type doneMsg struct{}

// authDoneMsg reports the outcome of a login or registration.
type authDoneMsg struct {
	err     error
	message string
	dest    string
}

// Model is the bubbletea model of the terminal front end.
type Model struct {
	ctx    context.Context
	store  *session.Store
	jar    *session.StorageJar
	api    controller.ChecklistAPI
	toasts *controller.Queue
	log    *zap.Logger

	screen screen
	// busy is set while a command runs; keys other than ctrl+c are ignored.
	busy  bool
	shown []controller.Toast

	// login and register fields
	fields   []textinput.Model
	focus    int
	callback string
	formErr  string

	todos  *controller.TodoList
	detail *controller.TodoDetail
	cursor int

	// input is the inline editor of the list and detail screens, used
	// for new entries (adding) and item renames.
	input  textinput.Model
	adding bool
}

// New returns a Model over store whose token cookie is kept by jar.
func New(ctx context.Context, store *session.Store, jar *session.StorageJar, api controller.ChecklistAPI, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{
		ctx:    ctx,
		store:  store,
		jar:    jar,
		api:    api,
		toasts: controller.NewQueue(toastQueueSize),
		log:    log,
	}
	m.resetControllers()
	return m
}

// NewStorageJar returns the cookie jar of the terminal namespace.
func NewStorageJar(st storage.Storage, log *zap.Logger) *session.StorageJar {
	return &session.StorageJar{Storage: st, Namespace: Namespace, Log: log}
}

func (m *Model) resetControllers() {
	m.todos = controller.NewTodoList(m.api, m.store, m.toasts, m.log)
	m.detail = controller.NewTodoDetail(m.api, m.store, m.toasts, m.log)
}

func (m *Model) Init() tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: "/"} }
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
	case navigateMsg:
		return m, m.navigate(msg.path)
	case doneMsg:
		m.busy = false
		m.drain()
		m.clampCursor()
		return m, nil
	case authDoneMsg:
		m.busy = false
		m.drain()
		if msg.err != nil {
			m.formErr = msg.message
			return m, nil
		}
		return m, m.navigate(msg.dest)
	}

	switch m.screen {
	case screenLogin, screenRegister:
		return m, m.updateForm(msg)
	case screenTodos:
		return m, m.updateTodos(msg)
	case screenDetail:
		return m, m.updateDetail(msg)
	case screenDashboard:
		return m, m.updateDashboard(msg)
	}
	return m, nil
}

// navigate applies the route guard to target and opens the resulting
// screen. Redirects are followed a bounded number of times.
func (m *Model) navigate(target string) tea.Cmd {
	m.shown = nil
	for range 3 {
		u, err := url.Parse(target)
		if err != nil {
			target = "/"
			continue
		}
		d := middleware.Decide(u.Path, m.jar.HasToken(m.ctx))
		if d.Pass() {
			return m.open(u)
		}
		target = d.Redirect
	}
	m.showLogin("")
	return nil
}

func (m *Model) open(u *url.URL) tea.Cmd {
	m.adding = false
	m.cursor = 0

	switch u.Path {
	case "/login":
		m.showLogin(u.Query().Get("callbackUrl"))
		return nil
	case "/register":
		m.showRegister()
		return nil
	}

	// The stored cookie outlived the session: drop it and log in again.
	if !m.store.Snapshot().Authenticated() {
		m.jar.ClearToken()
		m.showLogin(u.Path)
		return nil
	}

	switch {
	case u.Path == "/dashboard":
		m.screen = screenDashboard
		return nil
	case u.Path == "/todos":
		m.screen = screenTodos
		return m.run(m.todos.Mount)
	case strings.HasPrefix(u.Path, "/todos/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(u.Path, "/todos/"), 10, 64)
		if err != nil || id <= 0 {
			return m.navigate("/todos")
		}
		m.screen = screenDetail
		m.busy = true
		return func() tea.Msg {
			if err := m.detail.Mount(m.ctx, id); errors.Is(err, controller.ErrNotFound) {
				return navigateMsg{path: "/todos"}
			}
			return doneMsg{}
		}
	}
	return m.navigate("/todos")
}

// run executes fn as a command. Controllers report failures as toasts, so
// the error only ends up in the log.
func (m *Model) run(fn func(context.Context) error) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		if err := fn(m.ctx); err != nil {
			m.log.Debug("action failed", zap.Error(err))
		}
		return doneMsg{}
	}
}

func (m *Model) drain() {
	if t := m.toasts.Drain(); len(t) > 0 {
		m.shown = t
	}
}

func (m *Model) clampCursor() {
	n := 0
	switch m.screen {
	case screenTodos:
		n = len(m.todos.Todos())
	case screenDetail:
		n = len(m.detail.Items())
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) move(delta, n int) {
	if n == 0 {
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func (m *Model) startInput(placeholder, value string) {
	m.input = newInput(placeholder)
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// updateAdding feeds msg to the inline input; enter hands the value to
// submit, esc discards it.
func (m *Model) updateAdding(msg tea.Msg, submit func(context.Context, string) error) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			name := m.input.Value()
			m.adding = false
			m.input.Blur()
			return m.run(func(ctx context.Context) error { return submit(ctx, name) })
		case "esc":
			m.adding = false
			m.input.Blur()
			return nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}
