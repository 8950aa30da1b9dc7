package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/atinyakov/gophtodo/internal/models"
)

const (
	apiItems      = "/checklist/{id}/item"
	apiItem       = "/checklist/{id}/item/{itemId}"
	apiItemRename = "/checklist/{id}/item/rename/{itemId}"
)

// itemNameRequest is the body of item creation and renaming.
type itemNameRequest struct {
	ItemName string `json:"itemName"`
}

func itemsPath(checklistID int64) string {
	return fmt.Sprintf("/checklist/%d/item", checklistID)
}

func itemPath(checklistID, itemID int64) string {
	return fmt.Sprintf("/checklist/%d/item/%d", checklistID, itemID)
}

// ListItems returns the items of a checklist.
func (c *Client) ListItems(ctx context.Context, token string, checklistID int64) ([]models.ChecklistItem, error) {
	var raw json.RawMessage
	opts := RequestOptions{Headers: bearer(token), Route: apiItems}
	if err := c.Do(ctx, http.MethodGet, itemsPath(checklistID), opts, &raw); err != nil {
		return nil, err
	}
	env, err := decodeEnvelope[[]models.ChecklistItem](raw)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []models.ChecklistItem{}, nil
	}
	return env.Data, nil
}

// GetItem returns a single item.
func (c *Client) GetItem(ctx context.Context, token string, checklistID, itemID int64) (*models.ChecklistItem, error) {
	return c.itemCall(ctx, http.MethodGet, checklistID, itemPath(checklistID, itemID), apiItem, token, nil)
}

// CreateItem adds an item named name to a checklist.
func (c *Client) CreateItem(ctx context.Context, token string, checklistID int64, name string) (*models.ChecklistItem, error) {
	return c.itemCall(ctx, http.MethodPost, checklistID, itemsPath(checklistID), apiItems, token, itemNameRequest{ItemName: name})
}

// ToggleItem flips the completion flag of an item and returns the updated item.
func (c *Client) ToggleItem(ctx context.Context, token string, checklistID, itemID int64) (*models.ChecklistItem, error) {
	return c.itemCall(ctx, http.MethodPut, checklistID, itemPath(checklistID, itemID), apiItem, token, nil)
}

// RenameItem changes the name of an item.
func (c *Client) RenameItem(ctx context.Context, token string, checklistID, itemID int64, name string) (*models.ChecklistItem, error) {
	path := fmt.Sprintf("/checklist/%d/item/rename/%d", checklistID, itemID)
	return c.itemCall(ctx, http.MethodPut, checklistID, path, apiItemRename, token, itemNameRequest{ItemName: name})
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, token string, checklistID, itemID int64) error {
	opts := RequestOptions{Headers: bearer(token), Route: apiItem}
	return c.Do(ctx, http.MethodDelete, itemPath(checklistID, itemID), opts, nil)
}

func (c *Client) itemCall(ctx context.Context, method string, checklistID int64, path, route, token string, body any) (*models.ChecklistItem, error) {
	var raw json.RawMessage
	opts := RequestOptions{Headers: bearer(token), Body: body, Route: route}
	if err := c.Do(ctx, method, path, opts, &raw); err != nil {
		return nil, err
	}
	env, err := decodeEnvelope[models.ChecklistItem](raw)
	if err != nil {
		return nil, err
	}
	if env.Data.ChecklistID == 0 {
		env.Data.ChecklistID = checklistID
	}
	return &env.Data, nil
}
