package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/store"
)

// refTuesday is Tuesday, 2025-04-08; handlers under test resolve against it.
var refTuesday = time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)

type fakeTaskRepo struct {
	byID map[string]*store.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{byID: make(map[string]*store.Task)}
}

func (r *fakeTaskRepo) Create(_ context.Context, t store.Task) (*store.Task, error) {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.byID[t.ID] = &t
	cp := t
	return &cp, nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, userID int64, id string) (*store.Task, error) {
	t, ok := r.byID[id]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID int64) ([]store.Task, error) {
	var out []store.Task
	for _, t := range r.byID {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t store.Task) error {
	existing, ok := r.byID[t.ID]
	if !ok || existing.UserID != t.UserID {
		return store.ErrNotFound
	}
	existing.Content = t.Content
	existing.Day = t.Day
	existing.Time = t.Time
	existing.Notes = t.Notes
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTaskRepo) SetCompleted(_ context.Context, userID int64, id string, completed bool) error {
	t, ok := r.byID[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	t.IsCompleted = completed
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, userID int64, id string) error {
	t, ok := r.byID[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeTaskRepo) DeleteCompleted(_ context.Context, userID int64) (int64, error) {
	var n int64
	for id, t := range r.byID {
		if t.UserID == userID && t.IsCompleted {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeTaskRepo) ReplaceForUser(_ context.Context, userID int64, tasks []store.Task) error {
	for id, t := range r.byID {
		if t.UserID == userID {
			delete(r.byID, id)
		}
	}
	for _, t := range tasks {
		cp := t
		r.byID[t.ID] = &cp
	}
	return nil
}

type fakeUsageRepo struct {
	recorded []time.Time
}

func (r *fakeUsageRepo) Record(_ context.Context, _ int64) error {
	r.recorded = append(r.recorded, time.Now())
	return nil
}

func (r *fakeUsageRepo) CountSince(_ context.Context, _ int64, _ time.Time) (int, error) {
	return len(r.recorded), nil
}

func (r *fakeUsageRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeFeedTokenRepo struct {
	nextID int64
	byID   map[int64]*store.FeedToken
}

func newFakeFeedTokenRepo() *fakeFeedTokenRepo {
	return &fakeFeedTokenRepo{byID: make(map[int64]*store.FeedToken)}
}

func (r *fakeFeedTokenRepo) Create(_ context.Context, t store.FeedToken) (*store.FeedToken, error) {
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	r.byID[t.ID] = &t
	cp := t
	return &cp, nil
}

func (r *fakeFeedTokenRepo) GetByID(_ context.Context, id int64) (*store.FeedToken, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeFeedTokenRepo) ListByUser(_ context.Context, userID int64) ([]store.FeedToken, error) {
	var out []store.FeedToken
	for _, t := range r.byID {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeFeedTokenRepo) Revoke(_ context.Context, userID, id int64) error {
	t, ok := r.byID[id]
	if !ok || t.UserID != userID {
		return store.ErrNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (r *fakeFeedTokenRepo) TouchLastUsed(_ context.Context, id int64) error {
	t, ok := r.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	t.LastUsedAt = &now
	return nil
}

type fakePlanner struct {
	tasks  []planner.GeneratedTask
	err    error
	called int
}

func (p *fakePlanner) GenerateSchedule(_ context.Context, _ string, _ time.Time) ([]planner.GeneratedTask, error) {
	p.called++
	if p.err != nil {
		return nil, p.err
	}
	return p.tasks, nil
}

type testEnv struct {
	handler *Handler
	router  http.Handler
	tasks   *fakeTaskRepo
	usage   *fakeUsageRepo
	tokens  *fakeFeedTokenRepo
	planner *fakePlanner
	user    *store.User
}

func newTestEnv() *testEnv {
	cfg := &config.Config{}
	cfg.Quota.Limit = 2
	cfg.Quota.Window = time.Hour

	env := &testEnv{
		tasks:   newFakeTaskRepo(),
		usage:   &fakeUsageRepo{},
		tokens:  newFakeFeedTokenRepo(),
		planner: &fakePlanner{},
		user:    &store.User{ID: 1, PrimaryEmail: "user@example.com"},
	}

	st := &store.Store{
		Tasks:      env.tasks,
		Usage:      env.usage,
		FeedTokens: env.tokens,
	}

	env.handler = NewHandler(cfg, st, env.planner, auth.NewFeedTokenIssuer(env.tokens), zerolog.Nop())
	env.handler.now = func() time.Time { return refTuesday }

	r := chi.NewRouter()
	r.Get("/api/tasks", env.handler.ListTasks)
	r.Post("/api/tasks", env.handler.CreateTask)
	r.Put("/api/tasks/{id}", env.handler.UpdateTask)
	r.Post("/api/tasks/{id}/complete", env.handler.CompleteTask)
	r.Delete("/api/tasks/{id}", env.handler.DeleteTask)
	r.Delete("/api/tasks/completed", env.handler.DeleteCompletedTasks)
	r.Post("/api/schedule", env.handler.GenerateSchedule)
	r.Get("/api/schedule/export", env.handler.ExportSchedule)
	r.Get("/api/feed-tokens", env.handler.ListFeedTokens)
	r.Post("/api/feed-tokens", env.handler.CreateFeedToken)
	r.Post("/api/feed-tokens/{id}/revoke", env.handler.RevokeFeedToken)
	r.Get("/feed/{token}/schedule.ics", env.handler.Feed)
	env.router = r

	return env
}

// do issues an authenticated request against the test router.
func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = req.WithContext(auth.WithUser(req.Context(), env.user))

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func taskFixture(id string, userID int64, done bool) *store.Task {
	return &store.Task{
		ID:          id,
		UserID:      userID,
		Content:     "task " + id,
		Day:         "tomorrow",
		Time:        "9:00 AM",
		IsCompleted: done,
	}
}

func taskWithLabels(id string, userID int64, day, timeLabel string) *store.Task {
	t := taskFixture(id, userID, false)
	t.Day = day
	t.Time = timeLabel
	return t
}

// doAnon issues a request without an authenticated user on the context.
func (env *testEnv) doAnon(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}
