package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/atinyakov/gophtodo/internal/models"
)

var errAPI = errors.New("api down")

type staticToken string

func (s staticToken) Token() string { return string(s) }

// fakeAPI is an in-memory ChecklistAPI. Fields ending in Err force a
// failure of the matching call.
type fakeAPI struct {
	mu         sync.Mutex
	checklists []models.Checklist
	items      map[int64][]models.ChecklistItem
	nextID     int64
	calls      []string

	listErr      error
	itemsErr     map[int64]error
	createErr    error
	deleteErr    error
	itemWriteErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: map[int64][]models.ChecklistItem{}, itemsErr: map[int64]error{}, nextID: 100}
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) ListChecklists(ctx context.Context, token string) ([]models.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListChecklists")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Checklist(nil), f.checklists...), nil
}

func (f *fakeAPI) CreateChecklist(ctx context.Context, token, name string) (*models.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateChecklist")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	cl := models.Checklist{ID: f.nextID, Name: name}
	f.checklists = append(f.checklists, cl)
	return &cl, nil
}

func (f *fakeAPI) DeleteChecklist(ctx context.Context, token string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteChecklist")
	return f.deleteErr
}

func (f *fakeAPI) ListItems(ctx context.Context, token string, checklistID int64) ([]models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListItems")
	if err := f.itemsErr[checklistID]; err != nil {
		return nil, err
	}
	return append([]models.ChecklistItem(nil), f.items[checklistID]...), nil
}

func (f *fakeAPI) CreateItem(ctx context.Context, token string, checklistID int64, name string) (*models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateItem")
	if f.itemWriteErr != nil {
		return nil, f.itemWriteErr
	}
	f.nextID++
	it := models.ChecklistItem{ID: f.nextID, Name: name, ChecklistID: checklistID}
	f.items[checklistID] = append(f.items[checklistID], it)
	return &it, nil
}

func (f *fakeAPI) update(checklistID, itemID int64, fn func(*models.ChecklistItem)) (*models.ChecklistItem, error) {
	if f.itemWriteErr != nil {
		return nil, f.itemWriteErr
	}
	for i := range f.items[checklistID] {
		if f.items[checklistID][i].ID == itemID {
			fn(&f.items[checklistID][i])
			it := f.items[checklistID][i]
			return &it, nil
		}
	}
	return nil, errors.New("item not found")
}

func (f *fakeAPI) ToggleItem(ctx context.Context, token string, checklistID, itemID int64) (*models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ToggleItem")
	return f.update(checklistID, itemID, func(it *models.ChecklistItem) { it.Completed = !it.Completed })
}

func (f *fakeAPI) RenameItem(ctx context.Context, token string, checklistID, itemID int64, name string) (*models.ChecklistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RenameItem")
	return f.update(checklistID, itemID, func(it *models.ChecklistItem) { it.Name = name })
}

func (f *fakeAPI) DeleteItem(ctx context.Context, token string, checklistID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteItem")
	return f.itemWriteErr
}
