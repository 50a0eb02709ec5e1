package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "default provider", provider: ""},
		{name: "memory provider", provider: "memory"},
		{name: "unsupported provider", provider: "unsupported", wantErr: true},
		{name: "redis without url", provider: "redis", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store, err := NewStore(context.Background(), Config{Provider: tc.provider})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("expected close without error, got %v", err)
			}
		})
	}
}

func TestManagerRoundTrip(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	userID := uuid.New()

	rec := httptest.NewRecorder()
	if _, err := manager.CreateSession(context.Background(), rec, &Data{UserID: userID, Email: "buyer@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(cookies[0])
	data, err := manager.GetSession(req.Context(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.UserID != userID || data.Email != "buyer@example.com" {
		t.Fatalf("unexpected session data: %+v", data)
	}

	logout := httptest.NewRecorder()
	manager.DestroySession(req.Context(), logout, req)
	if _, err := manager.GetSession(req.Context(), req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected session to be gone, got %v", err)
	}
	if cleared := logout.Result().Cookies(); len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
}

func TestManagerExpiresSessions(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), true)
	start := time.Now()
	manager.now = func() time.Time { return start }

	rec := httptest.NewRecorder()
	if _, err := manager.CreateSession(context.Background(), rec, &Data{Email: "buyer@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	manager.now = func() time.Time { return start.Add(DefaultTTL + time.Minute) }
	if _, err := manager.GetSession(req.Context(), req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	manager := NewManager(NewMemoryStore(), false)
	unauthorized := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	protected := manager.RequireAuth(unauthorized)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			t.Errorf("expected session in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}

	login := httptest.NewRecorder()
	if _, err := manager.CreateSession(context.Background(), login, &Data{Email: "a@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.AddCookie(login.Result().Cookies()[0])
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
}
