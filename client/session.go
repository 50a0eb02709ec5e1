// Package client is a typed Go client for the garmentrack API. Each signed-in
// user is a Session; a shared Coordinator reacts to revoked sessions.
package client

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/models"
	"github.com/garmentrack/garmentrack/internal/observability"
)

const DefaultTimeout = 15 * time.Second

// Account is the signed-in user with the permissions the server derived.
type Account struct {
	User        *models.User       `json:"user"`
	Permissions access.Permissions `json:"permissions"`
}

// Session is one user's connection: base URL, cookie jar and account.
// A closed session refuses new calls and discards late responses.
type Session struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu         sync.RWMutex
	account    *Account
	closed     atomic.Bool
	loggingOut atomic.Bool
}

type SessionOption func(*Session)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.httpClient.Timeout = timeout
	}
}

// WithTransport replaces the traced default transport.
func WithTransport(rt http.RoundTripper) SessionOption {
	return func(s *Session) {
		s.httpClient.Transport = rt
	}
}

func NewSession(baseURL string, opts ...SessionOption) (*Session, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	httpClient := observability.NewHTTPClient(DefaultTimeout, parsed.Hostname())
	httpClient.Jar = jar

	s := &Session{baseURL: parsed, httpClient: httpClient}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Account returns the account from the last login or Me call, or nil.
func (s *Session) Account() *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

func (s *Session) Email() string {
	if account := s.Account(); account != nil && account.User != nil {
		return account.User.Email
	}
	return ""
}

// LoggingOut reports whether a 401 or 403 has torn this session down.
func (s *Session) LoggingOut() bool {
	return s.loggingOut.Load()
}

func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close ends the session locally. It is idempotent.
func (s *Session) Close() {
	s.closed.Store(true)
	s.setAccount(nil)
}

func (s *Session) setAccount(account *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
}

func (s *Session) endpoint(path string, query url.Values) string {
	u := *s.baseURL
	u.Path = s.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
