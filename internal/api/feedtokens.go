package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/planwise/planwise/internal/store"
)

type feedTokenResponse struct {
	ID         int64      `json:"id"`
	Label      string     `json:"label"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func toFeedTokenResponse(t store.FeedToken) feedTokenResponse {
	return feedTokenResponse{
		ID:         t.ID,
		Label:      t.Label,
		CreatedAt:  t.CreatedAt,
		RevokedAt:  t.RevokedAt,
		LastUsedAt: t.LastUsedAt,
	}
}

// CreateFeedToken mints a feed credential. The plaintext token appears in
// this response only.
func (h *Handler) CreateFeedToken(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	in := struct {
		Label string `json:"label"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Label = strings.TrimSpace(in.Label)
	if in.Label == "" {
		h.writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	plaintext, created, err := h.feedTokens.Issue(r.Context(), user.ID, in.Label)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("issue feed token failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		feedTokenResponse
		Token string `json:"token"`
	}{toFeedTokenResponse(*created), plaintext})
}

// ListFeedTokens returns the user's feed credentials without secrets.
func (h *Handler) ListFeedTokens(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	tokens, err := h.store.FeedTokens.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("list feed tokens failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]feedTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toFeedTokenResponse(t))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// RevokeFeedToken permanently disables a feed credential.
func (h *Handler) RevokeFeedToken(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	err = h.store.FeedTokens.Revoke(r.Context(), user.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "feed token not found")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Int64("token_id", id).Msg("revoke feed token failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
