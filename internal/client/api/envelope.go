package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the canonical response shape of the checklist API. Every
// resource call is decoded through it.
type Envelope[T any] struct {
	StatusCode   int     `json:"statusCode"`
	Message      string  `json:"message"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	Data         T       `json:"data"`
}

// decodeEnvelope unwraps raw into an Envelope. Older API builds answer some
// endpoints with the bare payload; a value that is not an object carrying
// "data" or "statusCode" is taken as Data.
func decodeEnvelope[T any](raw json.RawMessage) (Envelope[T], error) {
	var env Envelope[T]
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return env, nil
	}

	if raw[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return env, &Error{Message: fmt.Sprintf("invalid response: %v", err), Err: err}
		}
		_, hasData := fields["data"]
		_, hasStatus := fields["statusCode"]
		if hasData || hasStatus {
			if err := json.Unmarshal(raw, &env); err != nil {
				return env, &Error{Message: fmt.Sprintf("invalid response: %v", err), Err: err}
			}
			return env, nil
		}
	}

	if err := json.Unmarshal(raw, &env.Data); err != nil {
		return env, &Error{Message: fmt.Sprintf("invalid response: %v", err), Err: err}
	}
	return env, nil
}
