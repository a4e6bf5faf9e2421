package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/planwise/planwise/internal/config"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	return Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			return c
		}
	}
	t.Fatal("no csrf cookie issued")
	return nil
}

func TestMiddlewareExposesToken(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	cookie := csrfCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("csrf cookie should be HttpOnly")
	}
	header := rec.Header().Get("X-CSRF-Token")
	if header == "" {
		t.Fatal("X-CSRF-Token response header missing")
	}
	if header != cookie.Value {
		t.Errorf("header token %q does not match cookie %q", header, cookie.Value)
	}
}

func TestMiddlewareTokenInContext(t *testing.T) {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	var seen string
	h := Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TokenFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	if seen == "" {
		t.Fatal("TokenFromContext returned empty token")
	}
	if got := rec.Header().Get("X-CSRF-Token"); got != seen {
		t.Errorf("response header %q does not match context token %q", got, seen)
	}
}

func TestMiddlewareMutations(t *testing.T) {
	h := newTestHandler(t)

	// First request issues the token.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	cookie := csrfCookie(t, rec)
	token := rec.Header().Get("X-CSRF-Token")

	tests := []struct {
		name       string
		header     string
		form       string
		wantStatus int
	}{
		{"header echo", token, "", http.StatusNoContent},
		{"form field echo", "", token, http.StatusNoContent},
		{"missing token", "", "", http.StatusForbidden},
		{"wrong token", "not-the-token", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.form != "" {
				body := url.Values{"_csrf": {tt.form}}.Encode()
				req = httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				req = httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
			}
			req.AddCookie(cookie)
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddlewareFirstPostWithoutCookie(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
