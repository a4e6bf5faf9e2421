// Package api implements the JSON API and the calendar feed.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/config"
	"github.com/planwise/planwise/internal/metrics"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/store"
)

// SchedulePlanner generates task suggestions from a free-text description.
type SchedulePlanner interface {
	GenerateSchedule(ctx context.Context, description string, ref time.Time) ([]planner.GeneratedTask, error)
}

// Handler serves the authenticated JSON API and the tokenless calendar feed.
type Handler struct {
	store      *store.Store
	planner    SchedulePlanner
	feedTokens *auth.FeedTokenIssuer
	quota      struct {
		limit  int
		window time.Duration
	}
	log zerolog.Logger

	// now is swapped in tests to pin the resolver's reference date.
	now func() time.Time
}

func NewHandler(cfg *config.Config, st *store.Store, pl SchedulePlanner, issuer *auth.FeedTokenIssuer, log zerolog.Logger) *Handler {
	h := &Handler{
		store:      st,
		planner:    pl,
		feedTokens: issuer,
		log:        log,
		now:        time.Now,
	}
	h.quota.limit = cfg.Quota.Limit
	h.quota.window = cfg.Quota.Window
	return h
}

// reqLog returns the handler logger tagged with the request ID, so error
// lines can be matched against the access log.
func (h *Handler) reqLog(r *http.Request) *zerolog.Logger {
	if reqID := metrics.RequestIDFromContext(r.Context()); reqID != "" {
		l := h.log.With().Str("request_id", reqID).Logger()
		return &l
	}
	return &h.log
}

// currentUser pulls the authenticated user off the context. Routes behind
// RequireSession always have one; a miss means a wiring bug.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return user, true
}
