package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/atinyakov/gophtodo/internal/models"
)

const (
	apiChecklist   = "/checklist"
	apiChecklistID = "/checklist/{id}"
)

type createChecklistRequest struct {
	Name string `json:"name"`
}

// ListChecklists returns every checklist of the token's owner.
func (c *Client) ListChecklists(ctx context.Context, token string) ([]models.Checklist, error) {
	var raw json.RawMessage
	err := c.Do(ctx, http.MethodGet, apiChecklist, RequestOptions{Headers: bearer(token)}, &raw)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope[[]models.Checklist](raw)
	if err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []models.Checklist{}, nil
	}
	return env.Data, nil
}

// CreateChecklist creates a checklist named name.
func (c *Client) CreateChecklist(ctx context.Context, token, name string) (*models.Checklist, error) {
	var raw json.RawMessage
	opts := RequestOptions{Headers: bearer(token), Body: createChecklistRequest{Name: name}}
	if err := c.Do(ctx, http.MethodPost, apiChecklist, opts, &raw); err != nil {
		return nil, err
	}
	env, err := decodeEnvelope[models.Checklist](raw)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DeleteChecklist removes a checklist with all of its items.
func (c *Client) DeleteChecklist(ctx context.Context, token string, id int64) error {
	opts := RequestOptions{Headers: bearer(token), Route: apiChecklistID}
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/checklist/%d", id), opts, nil)
}
