// Package session issues cookie-backed login sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName = "garmentrack_session"
	DefaultTTL = 24 * time.Hour
)

var ErrNoSession = errors.New("no active session")

// Data is what a session remembers about the signed-in user. Role and
// account status are deliberately absent: they are re-read on every request.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt int64     `json:"created_at"`
}

type Store interface {
	Get(ctx context.Context, key string) (*Data, bool)
	Set(ctx context.Context, key string, data *Data, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

type Manager struct {
	store  Store
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secure bool) *Manager {
	return &Manager{
		store:  store,
		secure: secure,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// CreateSession stores data under a fresh ID and sets the session cookie.
func (m *Manager) CreateSession(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}
	if data == nil || data.Email == "" {
		return "", fmt.Errorf("session data is required")
	}

	sessionID := uuid.NewString()
	stored := cloneData(data)
	stored.CreatedAt = m.now().Unix()
	m.store.Set(ctx, sessionID, stored, m.ttl)

	http.SetCookie(w, m.cookie(sessionID, int(m.ttl.Seconds())))
	return sessionID, nil
}

func (m *Manager) GetSession(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	if ctx == nil {
		ctx = r.Context()
	}

	data, ok := m.store.Get(ctx, cookie.Value)
	if !ok {
		return nil, ErrNoSession
	}
	if m.now().Unix()-data.CreatedAt > int64(m.ttl.Seconds()) {
		m.store.Delete(ctx, cookie.Value)
		return nil, fmt.Errorf("%w: expired", ErrNoSession)
	}
	return data, nil
}

// DestroySession is safe to call without a session; the cookie is cleared either way.
func (m *Manager) DestroySession(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if ctx == nil {
		ctx = r.Context()
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		m.store.Delete(ctx, cookie.Value)
	}
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cloneData(data *Data) *Data {
	if data == nil {
		return nil
	}
	cloned := *data
	return &cloned
}
