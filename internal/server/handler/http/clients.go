package http

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/gophtodo/internal/controller"
	"github.com/atinyakov/gophtodo/internal/session"
)

// toastQueueSize bounds the pending toasts of one browser.
const toastQueueSize = 8

// clientState is everything the server keeps for one browser: its session,
// pending toasts and the controllers of the screens it has mounted.
type clientState struct {
	store  *session.Store
	toasts *controller.Queue

	// lastSeen is guarded by Clients.mu.
	lastSeen time.Time

	mu     sync.Mutex
	todos  *controller.TodoList
	detail *controller.TodoDetail
}

// disposable reports whether cs holds nothing worth keeping: no session
// and no mounted controller.
func (cs *clientState) disposable() bool {
	switch cs.store.State() {
	case session.Anonymous, session.Failed:
	default:
		return false
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.todos == nil && cs.detail == nil
}

// Clients maps client ids to their state.
type Clients struct {
	sessions *session.Manager
	api      controller.ChecklistAPI
	log      *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[string]*clientState
}

func NewClients(sessions *session.Manager, api controller.ChecklistAPI, log *zap.Logger) *Clients {
	if log == nil {
		log = zap.NewNop()
	}
	return &Clients{
		sessions: sessions,
		api:      api,
		log:      log,
		now:      time.Now,
		states:   make(map[string]*clientState),
	}
}

// Get returns the state of client id, restoring its session on first use.
// The session is loaded without holding the map lock.
func (c *Clients) Get(ctx context.Context, id string) *clientState {
	if cs, ok := c.Lookup(id); ok {
		return cs
	}
	store := c.sessions.Get(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.states[id]
	if !ok {
		cs = &clientState{store: store, toasts: controller.NewQueue(toastQueueSize)}
		c.states[id] = cs
	}
	cs.lastSeen = c.now()
	return cs
}

// Lookup returns the cached state of client id without creating one.
func (c *Clients) Lookup(id string) (*clientState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.states[id]
	if ok {
		cs.lastSeen = c.now()
	}
	return cs, ok
}

// Len returns the number of cached clients.
func (c *Clients) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

// Reset forgets client id. Its durable storage is left to the session.
func (c *Clients) Reset(id string) {
	c.mu.Lock()
	delete(c.states, id)
	c.mu.Unlock()
	c.sessions.Forget(id)
}

// release forgets client id when its state is disposable.
func (c *Clients) release(id string, cs *clientState) {
	if cs.disposable() {
		c.Reset(id)
	}
}

// Evict drops clients not seen since cutoff, and authenticated clients
// whose persisted token is gone. It returns how many were dropped.
func (c *Clients) Evict(ctx context.Context, cutoff time.Time) int {
	type candidate struct {
		id string
		cs *clientState
	}
	var idle []string
	var active []candidate

	c.mu.Lock()
	for id, cs := range c.states {
		if cs.lastSeen.Before(cutoff) {
			idle = append(idle, id)
			continue
		}
		if cs.store.Snapshot().Authenticated() {
			active = append(active, candidate{id: id, cs: cs})
		}
	}
	c.mu.Unlock()

	for _, a := range active {
		persisted, err := a.cs.store.Persisted(ctx)
		if err != nil {
			c.log.Warn("session check failed", zap.String("client", a.id), zap.Error(err))
			continue
		}
		if !persisted {
			idle = append(idle, a.id)
		}
	}
	for _, id := range idle {
		c.Reset(id)
	}
	return len(idle)
}

// StartEvictor runs Evict every interval with a cutoff of idle until ctx
// is done.
func (c *Clients) StartEvictor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Evict(ctx, c.now().Add(-idle)); n > 0 {
					c.log.Info("evicted idle clients", zap.Int("evicted", n))
				}
			}
		}
	}()
}

// todoList returns the list controller, creating it when needed. mounted
// reports whether it existed before.
func (c *Clients) todoList(cs *clientState) (tl *controller.TodoList, mounted bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.todos != nil {
		return cs.todos, true
	}
	cs.todos = controller.NewTodoList(c.api, cs.store, cs.toasts, c.log)
	return cs.todos, false
}

// todoDetail returns the detail controller and whether it is mounted on
// checklist id.
func (c *Clients) todoDetail(cs *clientState, id int64) (d *controller.TodoDetail, mounted bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.detail == nil {
		cs.detail = controller.NewTodoDetail(c.api, cs.store, cs.toasts, c.log)
		return cs.detail, false
	}
	return cs.detail, cs.detail.ChecklistID() == id
}
