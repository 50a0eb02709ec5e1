package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Client issues API calls on behalf of explicit sessions. It performs no
// automatic retries.
type Client struct {
	coordinator *Coordinator
	logger      *slog.Logger
}

func New(coordinator *Coordinator, logger *slog.Logger) *Client {
	if coordinator == nil {
		coordinator = NewCoordinator(nil)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{coordinator: coordinator, logger: logger.With("component", "api_client")}
}

type call struct {
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

func (c *Client) do(ctx context.Context, s *Session, req call, out any) (int, error) {
	op := req.method + " " + req.path
	if s.Closed() {
		return 0, fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, s.endpoint(req.path, req.query), body)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if s.Closed() {
		c.logger.Debug("discarding response for closed session", "op", op, "status", resp.StatusCode)
		return resp.StatusCode, fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Info("session revoked by server", "op", op, "status", resp.StatusCode)
		c.coordinator.unauthorized(ctx, s)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, errorFromResponse(op, resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}
	return resp.StatusCode, nil
}

// Login exchanges an identity token for a session cookie.
func (c *Client) Login(ctx context.Context, s *Session, token string) (*Account, error) {
	var account Account
	if _, err := c.do(ctx, s, call{method: http.MethodPost, path: "/login-user", body: map[string]string{"token": token}}, &account); err != nil {
		return nil, err
	}
	s.setAccount(&account)
	return &account, nil
}

// Logout ends the session on the server and locally.
func (c *Client) Logout(ctx context.Context, s *Session) error {
	_, err := c.do(ctx, s, call{method: http.MethodPost, path: "/logout"}, nil)
	s.Close()
	return err
}

// Me refreshes the session's account.
func (c *Client) Me(ctx context.Context, s *Session) (*Account, error) {
	var account Account
	if _, err := c.do(ctx, s, call{method: http.MethodGet, path: "/me"}, &account); err != nil {
		return nil, err
	}
	s.setAccount(&account)
	return &account, nil
}
