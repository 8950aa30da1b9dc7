package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/gophtodo/internal/controller"
	"github.com/atinyakov/gophtodo/internal/models"
)

type todosView struct {
	State controller.ListState
	Todos []controller.TodoSummary
}

type detailView struct {
	Checklist   *models.Checklist
	Items       []models.ChecklistItem
	Progress    models.Progress
	EditingID   int64
	EditingName string
	Editing     bool
}

// Todos handles GET /todos: the list is (re)mounted from the API.
func (h *Handler) Todos(w http.ResponseWriter, r *http.Request) {
	_, cs := h.client(r)
	if !h.requireSession(w, r, cs) {
		return
	}
	tl, _ := h.clients.todoList(cs)
	_ = tl.Mount(r.Context())
	h.renderTodos(w, cs, tl)
}

// CreateTodo handles POST /todos.
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	_, cs := h.client(r)
	if !h.requireSession(w, r, cs) {
		return
	}
	tl := h.mountedTodoList(r, cs)
	_ = tl.Create(r.Context(), r.PostFormValue("name"))
	h.renderTodos(w, cs, tl)
}

// DeleteTodo handles POST /todos/{id}/delete.
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	_, cs := h.client(r)
	if !h.requireSession(w, r, cs) {
		return
	}
	tl := h.mountedTodoList(r, cs)
	_ = tl.Delete(r.Context(), id)
	h.renderTodos(w, cs, tl)
}

// mountedTodoList returns the list controller, mounting it first when the
// browser posts without having navigated to the list in this process.
func (h *Handler) mountedTodoList(r *http.Request, cs *clientState) *controller.TodoList {
	tl, mounted := h.clients.todoList(cs)
	if !mounted {
		_ = tl.Mount(r.Context())
	}
	return tl
}

func (h *Handler) renderTodos(w http.ResponseWriter, cs *clientState, tl *controller.TodoList) {
	h.render(w, cs, "todos", "My Todos", todosView{State: tl.State(), Todos: tl.Todos()})
}

// TodoDetail handles GET /todos/{id}.
func (h *Handler) TodoDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	_, cs := h.client(r)
	if !h.requireSession(w, r, cs) {
		return
	}
	d, _ := h.clients.todoDetail(cs, id)
	if err := d.Mount(r.Context(), id); errors.Is(err, controller.ErrNotFound) {
		http.Redirect(w, r, "/todos", http.StatusSeeOther)
		return
	}
	h.renderDetail(w, cs, d)
}

// AddItem handles POST /todos/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.detailAction(w, r, false, func(r *http.Request, d *controller.TodoDetail, _ int64) {
		_ = d.AddItem(r.Context(), r.PostFormValue("name"))
	})
}

// ToggleItem handles POST /todos/{id}/items/{itemID}/toggle.
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	h.detailAction(w, r, true, func(r *http.Request, d *controller.TodoDetail, itemID int64) {
		_ = d.Toggle(r.Context(), itemID)
	})
}

// DeleteItem handles POST /todos/{id}/items/{itemID}/delete.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	h.detailAction(w, r, true, func(r *http.Request, d *controller.TodoDetail, itemID int64) {
		_ = d.DeleteItem(r.Context(), itemID)
	})
}

// EditItem handles POST /todos/{id}/items/{itemID}/edit and opens the
// inline editor.
func (h *Handler) EditItem(w http.ResponseWriter, r *http.Request) {
	h.detailAction(w, r, true, func(r *http.Request, d *controller.TodoDetail, itemID int64) {
		d.StartEdit(itemID)
	})
}

// RenameItem handles POST /todos/{id}/items/{itemID}/rename. The form
// field key is the pressed key: Enter saves, Escape cancels.
func (h *Handler) RenameItem(w http.ResponseWriter, r *http.Request) {
	h.detailAction(w, r, true, func(r *http.Request, d *controller.TodoDetail, itemID int64) {
		if editID, _, editing := d.Editing(); !editing || editID != itemID {
			d.StartEdit(itemID)
		}
		key := r.PostFormValue("key")
		if key == "" {
			key = controller.KeyEnter
		}
		if key == controller.KeyEnter {
			d.SetEditName(r.PostFormValue("name"))
		}
		_ = d.HandleKey(r.Context(), key)
	})
}

// detailAction runs fn on the detail controller mounted on {id}, mounting
// it first when needed, and renders the reconciled state.
func (h *Handler) detailAction(w http.ResponseWriter, r *http.Request, withItem bool, fn func(*http.Request, *controller.TodoDetail, int64)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var itemID int64
	if withItem {
		if itemID, ok = pathID(w, r, "itemID"); !ok {
			return
		}
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	_, cs := h.client(r)
	if !h.requireSession(w, r, cs) {
		return
	}

	d, mounted := h.clients.todoDetail(cs, id)
	if !mounted {
		if err := d.Mount(r.Context(), id); errors.Is(err, controller.ErrNotFound) {
			http.Redirect(w, r, "/todos", http.StatusSeeOther)
			return
		}
	}
	fn(r, d, itemID)
	h.renderDetail(w, cs, d)
}

func (h *Handler) renderDetail(w http.ResponseWriter, cs *clientState, d *controller.TodoDetail) {
	editID, editName, editing := d.Editing()
	h.render(w, cs, "detail", "Checklist", detailView{
		Checklist:   d.Checklist(),
		Items:       d.Items(),
		Progress:    d.Progress(),
		EditingID:   editID,
		EditingName: editName,
		Editing:     editing,
	})
}

// pathID parses the URL parameter name as a positive integer, answering
// 404 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
