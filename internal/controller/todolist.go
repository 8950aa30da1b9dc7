package controller

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/gophtodo/internal/models"
	"github.com/atinyakov/gophtodo/internal/session"
)

// Toast messages of the checklist list.
const (
	MsgFetchTodosFailed = "Failed to fetch todos"
	MsgTodoCreated      = "Todo created successfully"
	MsgTodoCreateFailed = "Failed to create todo"
	MsgTodoDeleted      = "Todo deleted successfully"
	MsgTodoDeleteFailed = "Failed to delete todo"
)

// progressFanOut caps concurrent item fetches during Mount.
const progressFanOut = 8

// ListState is what the list screen shows.
type ListState string

const (
	ListLoading   ListState = "loading"
	ListEmpty     ListState = "empty"
	ListPopulated ListState = "populated"
)

// TodoSummary is a checklist with the progress of its items.
type TodoSummary struct {
	models.Checklist
	Progress models.Progress
}

// TodoList controls the checklist overview.
type TodoList struct {
	api    ChecklistAPI
	tokens TokenSource
	notify Notifier
	log    *zap.Logger

	mu      sync.Mutex
	todos   []TodoSummary
	loading bool
}

func NewTodoList(api ChecklistAPI, tokens TokenSource, n Notifier, log *zap.Logger) *TodoList {
	if log == nil {
		log = zap.NewNop()
	}
	return &TodoList{api: api, tokens: tokens, notify: n, log: log}
}

// Mount loads all checklists and the progress of each. Item fetches run
// concurrently; one failing only zeroes that checklist's progress. Without
// a token nothing is fetched.
func (c *TodoList) Mount(ctx context.Context) error {
	token := c.tokens.Token()
	if token == "" {
		return nil
	}
	c.setLoading(true)
	defer c.setLoading(false)

	lists, err := c.api.ListChecklists(ctx, token)
	if err != nil {
		c.log.Error("fetch checklists", zap.Error(err))
		failure(c.notify, MsgFetchTodosFailed)
		return err
	}

	todos := make([]TodoSummary, len(lists))
	var g errgroup.Group
	g.SetLimit(progressFanOut)
	for i, cl := range lists {
		todos[i] = TodoSummary{Checklist: cl}
		g.Go(func() error {
			items, err := c.api.ListItems(ctx, token, cl.ID)
			if err != nil {
				c.log.Warn("fetch checklist items", zap.Int64("checklist_id", cl.ID), zap.Error(err))
				return nil
			}
			todos[i].Progress = models.ProgressOf(items)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	c.todos = todos
	c.mu.Unlock()
	return nil
}

// Create adds a checklist named name. Blank names are ignored.
func (c *TodoList) Create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	token := c.tokens.Token()
	if token == "" {
		return session.ErrNoToken
	}

	created, err := c.api.CreateChecklist(ctx, token, name)
	if err != nil {
		c.log.Error("create checklist", zap.Error(err))
		failure(c.notify, MsgTodoCreateFailed)
		return err
	}

	c.mu.Lock()
	c.todos = append(c.todos, TodoSummary{Checklist: *created, Progress: models.ProgressOf(created.Items)})
	c.mu.Unlock()
	success(c.notify, MsgTodoCreated)
	return nil
}

// Delete removes the checklist with id.
func (c *TodoList) Delete(ctx context.Context, id int64) error {
	token := c.tokens.Token()
	if token == "" {
		return session.ErrNoToken
	}
	if err := c.api.DeleteChecklist(ctx, token, id); err != nil {
		c.log.Error("delete checklist", zap.Int64("checklist_id", id), zap.Error(err))
		failure(c.notify, MsgTodoDeleteFailed)
		return err
	}

	c.mu.Lock()
	kept := c.todos[:0:0]
	for _, t := range c.todos {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.todos = kept
	c.mu.Unlock()
	success(c.notify, MsgTodoDeleted)
	return nil
}

// Todos returns a copy of the loaded checklists.
func (c *TodoList) Todos() []TodoSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TodoSummary(nil), c.todos...)
}

func (c *TodoList) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.loading:
		return ListLoading
	case len(c.todos) == 0:
		return ListEmpty
	default:
		return ListPopulated
	}
}

func (c *TodoList) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}
