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

// Toast messages of the checklist detail.
const (
	MsgChecklistNotFound  = "Checklist not found"
	MsgFetchChecklistFail = "Failed to fetch checklist"
	MsgFetchItemsFailed   = "Failed to fetch items"
	MsgItemAdded          = "Item added successfully"
	MsgItemAddFailed      = "Failed to add item"
	MsgItemUpdateFailed   = "Failed to update item"
	MsgItemDeleted        = "Item deleted successfully"
	MsgItemDeleteFailed   = "Failed to delete item"
	MsgItemRenamed        = "Item renamed successfully"
	MsgItemRenameFailed   = "Failed to rename item"
)

// Keys understood by HandleKey.
const (
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
)

// DetailState is what the detail screen shows.
type DetailState string

const (
	DetailLoading  DetailState = "loading"
	DetailReady    DetailState = "ready"
	DetailNotFound DetailState = "not_found"
)

// TodoDetail controls one checklist and its items.
type TodoDetail struct {
	api    ChecklistAPI
	tokens TokenSource
	notify Notifier
	log    *zap.Logger

	mu          sync.Mutex
	checklistID int64
	checklist   *models.Checklist
	items       []models.ChecklistItem
	loading     bool
	notFound    bool
	editingID   int64
	editing     bool
	editName    string
}

func NewTodoDetail(api ChecklistAPI, tokens TokenSource, n Notifier, log *zap.Logger) *TodoDetail {
	if log == nil {
		log = zap.NewNop()
	}
	return &TodoDetail{api: api, tokens: tokens, notify: n, log: log}
}

// Mount loads checklist id and its items concurrently. ErrNotFound is
// returned, after a toast, when the checklist is not among the user's.
func (c *TodoDetail) Mount(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.checklistID = id
	c.checklist = nil
	c.items = nil
	c.notFound = false
	c.editing, c.editingID, c.editName = false, 0, ""
	c.mu.Unlock()

	token := c.tokens.Token()
	if token == "" {
		return nil
	}
	c.setLoading(true)
	defer c.setLoading(false)

	var (
		found    *models.Checklist
		items    []models.ChecklistItem
		listErr  error
		itemsErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		lists, err := c.api.ListChecklists(ctx, token)
		if err != nil {
			listErr = err
			return nil
		}
		for i := range lists {
			if lists[i].ID == id {
				found = &lists[i]
				break
			}
		}
		return nil
	})
	g.Go(func() error {
		items, itemsErr = c.api.ListItems(ctx, token, id)
		return nil
	})
	_ = g.Wait()

	if itemsErr != nil {
		c.log.Error("fetch items", zap.Int64("checklist_id", id), zap.Error(itemsErr))
		failure(c.notify, MsgFetchItemsFailed)
		items = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	switch {
	case listErr != nil:
		c.log.Error("fetch checklist", zap.Int64("checklist_id", id), zap.Error(listErr))
		failure(c.notify, MsgFetchChecklistFail)
		return listErr
	case found == nil:
		failure(c.notify, MsgChecklistNotFound)
		c.notFound = true
		return ErrNotFound
	}
	c.checklist = found
	return itemsErr
}

// AddItem appends a new item named name. Blank names are ignored.
func (c *TodoDetail) AddItem(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	token, id, err := c.target()
	if err != nil {
		return err
	}

	item, err := c.api.CreateItem(ctx, token, id, name)
	if err != nil {
		c.log.Error("create item", zap.Int64("checklist_id", id), zap.Error(err))
		failure(c.notify, MsgItemAddFailed)
		return err
	}

	c.mu.Lock()
	c.items = append(c.items, *item)
	c.mu.Unlock()
	success(c.notify, MsgItemAdded)
	return nil
}

// Toggle flips an item's completion and replaces it with the API's copy.
func (c *TodoDetail) Toggle(ctx context.Context, itemID int64) error {
	token, id, err := c.target()
	if err != nil {
		return err
	}

	item, err := c.api.ToggleItem(ctx, token, id, itemID)
	if err != nil {
		c.log.Error("toggle item", zap.Int64("item_id", itemID), zap.Error(err))
		failure(c.notify, MsgItemUpdateFailed)
		return err
	}

	c.mu.Lock()
	c.replace(itemID, *item)
	c.mu.Unlock()
	return nil
}

// DeleteItem removes exactly the item with itemID.
func (c *TodoDetail) DeleteItem(ctx context.Context, itemID int64) error {
	token, id, err := c.target()
	if err != nil {
		return err
	}

	if err := c.api.DeleteItem(ctx, token, id, itemID); err != nil {
		c.log.Error("delete item", zap.Int64("item_id", itemID), zap.Error(err))
		failure(c.notify, MsgItemDeleteFailed)
		return err
	}

	c.mu.Lock()
	kept := c.items[:0:0]
	for _, it := range c.items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	c.items = kept
	if c.editing && c.editingID == itemID {
		c.editing, c.editingID, c.editName = false, 0, ""
	}
	c.mu.Unlock()
	success(c.notify, MsgItemDeleted)
	return nil
}

// StartEdit enters edit mode for itemID with its current name as buffer.
func (c *TodoDetail) StartEdit(itemID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ID == itemID {
			c.editing, c.editingID, c.editName = true, itemID, it.Name
			return true
		}
	}
	return false
}

// SetEditName replaces the edit buffer.
func (c *TodoDetail) SetEditName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing {
		c.editName = name
	}
}

// CancelEdit leaves edit mode without saving.
func (c *TodoDetail) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing, c.editingID, c.editName = false, 0, ""
}

// SaveEdit renames the edited item. A blank buffer keeps edit mode and
// makes no call.
func (c *TodoDetail) SaveEdit(ctx context.Context) error {
	c.mu.Lock()
	editing, itemID, name := c.editing, c.editingID, strings.TrimSpace(c.editName)
	c.mu.Unlock()
	if !editing || name == "" {
		return nil
	}
	token, id, err := c.target()
	if err != nil {
		return err
	}

	item, err := c.api.RenameItem(ctx, token, id, itemID, name)
	if err != nil {
		c.log.Error("rename item", zap.Int64("item_id", itemID), zap.Error(err))
		failure(c.notify, MsgItemRenameFailed)
		return err
	}

	c.mu.Lock()
	c.replace(itemID, *item)
	if c.editingID == itemID {
		c.editing, c.editingID, c.editName = false, 0, ""
	}
	c.mu.Unlock()
	success(c.notify, MsgItemRenamed)
	return nil
}

// HandleKey maps Enter to SaveEdit and Escape to CancelEdit while editing.
func (c *TodoDetail) HandleKey(ctx context.Context, key string) error {
	switch key {
	case KeyEnter:
		return c.SaveEdit(ctx)
	case KeyEscape:
		c.CancelEdit()
	}
	return nil
}

// Editing returns the edited item and buffer.
func (c *TodoDetail) Editing() (itemID int64, name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID, c.editName, c.editing
}

func (c *TodoDetail) Checklist() *models.Checklist {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checklist == nil {
		return nil
	}
	cl := *c.checklist
	return &cl
}

func (c *TodoDetail) ChecklistID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checklistID
}

// Items returns a copy of the loaded items.
func (c *TodoDetail) Items() []models.ChecklistItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChecklistItem(nil), c.items...)
}

// Progress counts completed items.
func (c *TodoDetail) Progress() models.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ProgressOf(c.items)
}

func (c *TodoDetail) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.loading:
		return DetailLoading
	case c.notFound:
		return DetailNotFound
	default:
		return DetailReady
	}
}

func (c *TodoDetail) target() (string, int64, error) {
	token := c.tokens.Token()
	if token == "" {
		return "", 0, session.ErrNoToken
	}
	return token, c.ChecklistID(), nil
}

// replace swaps the item with id for item. Callers hold mu.
func (c *TodoDetail) replace(id int64, item models.ChecklistItem) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i] = item
			return
		}
	}
}

func (c *TodoDetail) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}
