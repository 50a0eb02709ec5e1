package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostmarkProviderSendEmail(t *testing.T) {
	t.Parallel()

	var got postmarkMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/email" {
			t.Errorf("unexpected path: got=%q want=%q", r.URL.Path, "/email")
		}
		if token := r.Header.Get("X-Postmark-Server-Token"); token != "pm-token" {
			t.Errorf("unexpected token: got=%q want=%q", token, "pm-token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("unexpected decode error: %v", err)
		}
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"abc"}`))
	}))
	defer srv.Close()

	p := NewPostmarkProviderWithBaseURL("pm-token", "orders@example.com", srv.URL)
	err := p.SendEmail(context.Background(), &Email{To: "buyer@example.com", Subject: "Order approved", Text: "approved"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.To != "buyer@example.com" || got.From != "orders@example.com" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestPostmarkProviderSurfacesAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer srv.Close()

	p := NewPostmarkProviderWithBaseURL("pm-token", "orders@example.com", srv.URL)
	err := p.SendEmail(context.Background(), &Email{To: "buyer@example.com", Subject: "x", Text: "y"})
	if err == nil || !strings.Contains(err.Error(), "postmark error (300)") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMailgunProviderSendEmail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mg.example.com/messages" {
			t.Errorf("unexpected path: got=%q want=%q", r.URL.Path, "/mg.example.com/messages")
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "api" || pass != "mg-key" {
			t.Errorf("unexpected basic auth: %q %q %v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("unexpected form error: %v", err)
		}
		if to := r.PostForm.Get("to"); to != "buyer@example.com" {
			t.Errorf("unexpected recipient: got=%q want=%q", to, "buyer@example.com")
		}
		_, _ = w.Write([]byte(`{"id":"<1@mg>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	m := NewMailgunProviderWithBaseURL("mg-key", "mg.example.com", "orders@example.com", srv.URL+"/")
	if err := m.SendEmail(context.Background(), &Email{To: "buyer@example.com", Subject: "Order approved", HTML: "<p>ok</p>"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMailgunProviderValidateAPIKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Forbidden"))
	}))
	defer srv.Close()

	m := NewMailgunProviderWithBaseURL("bad", "mg.example.com", "orders@example.com", srv.URL)
	err := m.ValidateAPIKey(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("unexpected error: %v", err)
	}
}
