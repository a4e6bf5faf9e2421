package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/store"
)

type fakeSessionRepo struct {
	byID map[string]*store.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: make(map[string]*store.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, s store.Session) error {
	r.byID[s.ID] = &s
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*store.Session, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) ListByUser(_ context.Context, userID int64) ([]store.Session, error) {
	var out []store.Session
	for _, s := range r.byID {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) TouchLastSeen(_ context.Context, id string) error {
	s, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	s.LastSeenAt = &now
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	var n int64
	for id, s := range r.byID {
		if time.Now().After(s.ExpiresAt) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Session.TTL = time.Hour
	return cfg
}

func withCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionIssueAndCurrent(t *testing.T) {
	repo := newFakeSessionRepo()
	mgr := NewSessionManager(testConfig(), repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-agent")

	if err := mgr.Issue(rec, req, 42); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one session record, got %d", len(repo.byID))
	}

	sess, ok := mgr.Current(withCookies(t, rec))
	if !ok {
		t.Fatal("Current did not resolve a just-issued session")
	}
	if sess.UserID != 42 {
		t.Errorf("UserID = %d, want 42", sess.UserID)
	}
	if sess.UserAgent == nil || *sess.UserAgent != "test-agent" {
		t.Errorf("UserAgent = %v, want test-agent", sess.UserAgent)
	}
}

func TestSessionExpiredNotCurrent(t *testing.T) {
	repo := newFakeSessionRepo()
	mgr := NewSessionManager(testConfig(), repo)

	rec := httptest.NewRecorder()
	if err := mgr.Issue(rec, httptest.NewRequest(http.MethodGet, "/", nil), 42); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	for _, s := range repo.byID {
		s.ExpiresAt = time.Now().Add(-time.Minute)
	}

	if _, ok := mgr.Current(withCookies(t, rec)); ok {
		t.Error("expired session still resolved")
	}
}

func TestSessionClear(t *testing.T) {
	repo := newFakeSessionRepo()
	mgr := NewSessionManager(testConfig(), repo)

	rec := httptest.NewRecorder()
	if err := mgr.Issue(rec, httptest.NewRequest(http.MethodGet, "/", nil), 42); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clearRec := httptest.NewRecorder()
	mgr.Clear(clearRec, withCookies(t, rec))

	if len(repo.byID) != 0 {
		t.Error("session record not deleted on clear")
	}
	cookies := clearRec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" {
		t.Errorf("expected an emptied cookie, got %+v", cookies)
	}
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	repo := newFakeSessionRepo()
	mgr := NewSessionManager(testConfig(), repo)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "not-a-valid-encoding"})

	if _, ok := mgr.Current(req); ok {
		t.Error("tampered cookie resolved a session")
	}
}
