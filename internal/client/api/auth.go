package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/gophtodo/internal/models"
)

const (
	apiLogin    = "/login"
	apiRegister = "/register"
)

// AuthResult is the outcome of a login or registration call. Token is
// empty when the server answered 2xx without issuing one.
type AuthResult struct {
	StatusCode int
	Message    string
	Token      string
}

type tokenPayload struct {
	Token string `json:"token"`
}

// Login posts the credentials to /login.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, apiLogin, creds)
}

// Register posts a new account to /register.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*AuthResult, error) {
	return c.authenticate(ctx, apiRegister, reg)
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body any) (*AuthResult, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodPost, endpoint, RequestOptions{Body: body}, &raw); err != nil {
		return nil, err
	}
	env, err := decodeEnvelope[tokenPayload](raw)
	if err != nil {
		return nil, err
	}
	res := &AuthResult{StatusCode: env.StatusCode, Message: env.Message, Token: env.Data.Token}
	if res.Message == "" && env.ErrorMessage != nil {
		res.Message = *env.ErrorMessage
	}
	return res, nil
}
