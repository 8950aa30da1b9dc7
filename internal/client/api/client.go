// Package api is the HTTP client of the remote checklist REST API: a
// generic request helper with uniform error translation, and typed resource
// calls for auth, checklists and checklist items built on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NetworkErrorMessage is reported for transport failures (status 0).
const NetworkErrorMessage = "Network error occurred. Please check your connection."

// Error is returned for every failed call. Status is 0 when no HTTP
// response was received.
type Error struct {
	Status  int
	Message string
	// Body is the decoded JSON error payload, nil when the body was not JSON.
	Body any
	// Err is the underlying transport or decoding failure, if any.
	Err error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// Recorder receives one observation per outbound call.
type Recorder interface {
	ObserveAPICall(method, route string, status int, d time.Duration)
}

// RequestOptions describes one call.
type RequestOptions struct {
	// Headers are merged over the default JSON content type.
	Headers map[string]string
	// Body is JSON-encoded when not nil.
	Body any
	// Route is the endpoint template used as the metrics label; the
	// concrete endpoint is used when empty.
	Route string
}

// Client issues requests against a fixed base URL.
type Client struct {
	baseURL  string
	http     *http.Client
	log      *zap.Logger
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a Client for baseURL (without trailing slash).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends method to baseURL+endpoint. On a 2xx JSON response the body is
// decoded into out (when out is not nil); any other 2xx leaves out
// untouched. Failures are always returned as *Error and never retried.
func (c *Client) Do(ctx context.Context, method, endpoint string, opts RequestOptions, out any) error {
	route := opts.Route
	if route == "" {
		route = endpoint
	}
	start := time.Now()
	status, err := c.do(ctx, method, endpoint, opts, out)
	if c.recorder != nil {
		c.recorder.ObserveAPICall(method, route, status, time.Since(start))
	}
	if err != nil {
		c.log.Debug("api call failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, opts RequestOptions, out any) (int, error) {
	var body io.Reader
	if opts.Body != nil {
		b, err := json.Marshal(opts.Body)
		if err != nil {
			return 0, &Error{Message: fmt.Sprintf("encode request: %v", err), Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return 0, &Error{Message: NetworkErrorMessage, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &Error{Message: NetworkErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, errorFromResponse(resp)
	}

	if out == nil || !isJSON(resp.Header.Get("Content-Type")) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, &Error{Message: fmt.Sprintf("invalid response: %v", err), Err: err}
	}
	return resp.StatusCode, nil
}

// errorFromResponse builds the *Error of a non-2xx response. The message is
// taken from a JSON body's "message" (then "errorMessage") when present.
func errorFromResponse(resp *http.Response) *Error {
	apiErr := &Error{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return apiErr
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return apiErr
	}
	apiErr.Body = parsed
	if obj, ok := parsed.(map[string]any); ok {
		for _, key := range []string{"message", "errorMessage"} {
			if msg, ok := obj[key].(string); ok && msg != "" {
				apiErr.Message = msg
				break
			}
		}
	}
	return apiErr
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "application/json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// bearer returns the authorization header for token.
func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
