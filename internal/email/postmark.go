package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/garmentrack/garmentrack/internal/observability"
)

const (
	postmarkBaseURL = "https://api.postmarkapp.com"
	postmarkTimeout = 30 * time.Second
)

// PostmarkProvider sends order mail through the Postmark HTTP API.
type PostmarkProvider struct {
	serverToken string
	from        string
	baseURL     string
	client      *http.Client
}

type postmarkResponse struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

type postmarkMessage struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody,omitempty"`
	HtmlBody string `json:"HtmlBody,omitempty"`
	Tag      string `json:"Tag,omitempty"`
}

func NewPostmarkProvider(serverToken, from string) *PostmarkProvider {
	return NewPostmarkProviderWithBaseURL(serverToken, from, postmarkBaseURL)
}

func NewPostmarkProviderWithBaseURL(serverToken, from, baseURL string) *PostmarkProvider {
	return &PostmarkProvider{
		serverToken: serverToken,
		from:        from,
		baseURL:     baseURL,
		client:      observability.NewHTTPClient(postmarkTimeout),
	}
}

func (p *PostmarkProvider) SendEmail(ctx context.Context, email *Email) error {
	if email == nil {
		return fmt.Errorf("email is required")
	}
	payload, err := json.Marshal(postmarkMessage{
		From:     p.from,
		To:       email.To,
		Subject:  email.Subject,
		TextBody: email.Text,
		HtmlBody: email.HTML,
		Tag:      "order-status",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := p.do(req)
	if err != nil {
		return fmt.Errorf("failed to send email via postmark: %w", err)
	}

	var result postmarkResponse
	if jsonErr := json.Unmarshal(body, &result); jsonErr == nil && result.ErrorCode != 0 {
		return fmt.Errorf("postmark error (%d): %s", result.ErrorCode, result.Message)
	}
	if status != http.StatusOK {
		return fmt.Errorf("postmark API returned status %d: %s", status, string(body))
	}
	return nil
}

func (p *PostmarkProvider) ValidateAPIKey(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/server", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	status, body, err := p.do(req)
	if err != nil {
		return fmt.Errorf("failed to validate API key: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("invalid API key: received status %d: %s", status, string(body))
	}
	return nil
}

func (p *PostmarkProvider) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.serverToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read postmark response: %w", err)
	}
	return resp.StatusCode, body, nil
}
