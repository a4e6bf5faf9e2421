package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/http/csrf"
	"github.com/planwise/planwise/internal/store"
)

type sessionResponse struct {
	ID         string     `json:"id"`
	UserAgent  *string    `json:"user_agent,omitempty"`
	IPAddress  *string    `json:"ip_address,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	Current    bool       `json:"current"`
}

// Me describes the authenticated user. The CSRF token rides along so API
// clients have a place to fetch it before their first mutation.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		CSRFToken string `json:"csrf_token,omitempty"`
	}{user.ID, user.PrimaryEmail, csrf.TokenFromContext(r.Context())})
}

// ListSessions returns the user's active web sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	current := auth.SessionIDFromContext(r.Context())

	sessions, err := h.store.Sessions.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("list sessions failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			LastSeenAt: s.LastSeenAt,
			Current:    s.ID == current,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// RevokeSession terminates one of the user's sessions.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	// The record must belong to the caller before it is deleted.
	sess, err := h.store.Sessions.GetByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sess.UserID != user.ID) {
		h.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("load session failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.store.Sessions.Delete(r.Context(), id); err != nil {
		h.reqLog(r).Error().Err(err).Msg("delete session failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
