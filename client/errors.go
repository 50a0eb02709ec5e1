package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/garmentrack/garmentrack/internal/lifecycle"
)

var (
	// ErrUnauthenticated means the server no longer recognises the session.
	ErrUnauthenticated = errors.New("session expired")
	// ErrSessionClosed is returned for calls on a session that was logged out,
	// including responses that arrive after the logout.
	ErrSessionClosed = errors.New("session closed")
)

// NetworkError is a transport failure or a response outside the error taxonomy.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// errorFromResponse maps a non-2xx response back onto the error taxonomy.
func errorFromResponse(op string, resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", op, lifecycle.ErrForbidden, body.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, lifecycle.ErrNotFound, body.Error)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w: %s", op, lifecycle.ErrInvalidTransition, body.Error)
	case http.StatusUnprocessableEntity:
		return &lifecycle.ValidationError{Field: body.Field, Message: body.Error}
	default:
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(body.Error)}
	}
}
