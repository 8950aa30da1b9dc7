// Package controller holds the UI-agnostic view controllers of the
// front ends. A controller owns the state of one screen for one client,
// talks to the API through small interfaces, and reports outcomes as
// toasts. Front ends render controller state and forward user actions.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/gophtodo/internal/models"
)

// Kind classifies a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Toast is a transient notification.
type Toast struct {
	Kind    Kind
	Message string
}

// Notifier receives toasts.
type Notifier interface {
	Notify(Toast)
}

// DefaultQueueSize bounds a Queue created with a non-positive size.
const DefaultQueueSize = 16

// Queue buffers toasts until the renderer drains them. When full the
// oldest toast is dropped.
type Queue struct {
	mu    sync.Mutex
	max   int
	items []Toast
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = DefaultQueueSize
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(t Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.max {
		q.items = q.items[1:]
	}
	q.items = append(q.items, t)
}

// Drain returns and removes all pending toasts.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func success(n Notifier, msg string) { n.Notify(Toast{Kind: KindSuccess, Message: msg}) }

func failure(n Notifier, msg string) { n.Notify(Toast{Kind: KindError, Message: msg}) }

// ErrValidation wraps form validation failures.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when a mounted checklist does not exist.
var ErrNotFound = errors.New("checklist not found")

// TokenSource yields the bearer token of the current session, empty when
// anonymous.
type TokenSource interface {
	Token() string
}

// ChecklistAPI is the part of the API client used by the checklist screens.
type ChecklistAPI interface {
	ListChecklists(ctx context.Context, token string) ([]models.Checklist, error)
	CreateChecklist(ctx context.Context, token, name string) (*models.Checklist, error)
	DeleteChecklist(ctx context.Context, token string, id int64) error
	ListItems(ctx context.Context, token string, checklistID int64) ([]models.ChecklistItem, error)
	CreateItem(ctx context.Context, token string, checklistID int64, name string) (*models.ChecklistItem, error)
	ToggleItem(ctx context.Context, token string, checklistID, itemID int64) (*models.ChecklistItem, error)
	RenameItem(ctx context.Context, token string, checklistID, itemID int64, name string) (*models.ChecklistItem, error)
	DeleteItem(ctx context.Context, token string, checklistID, itemID int64) error
}
