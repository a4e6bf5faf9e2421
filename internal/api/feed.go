package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/schedule"
)

// Feed serves a user's schedule to calendar apps subscribed with a feed
// token. Unlike the authenticated export, an empty schedule is a valid empty
// calendar here: feed clients poll unattended and treat error statuses as a
// broken subscription.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	rec, err := h.feedTokens.Verify(r.Context(), token)
	if errors.Is(err, auth.ErrInvalidFeedToken) {
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("feed token verification failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	tasks, err := h.store.Tasks.ListByUser(r.Context(), rec.UserID)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("list tasks for feed failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload, skipped, err := schedule.Export(tasks, h.now())
	h.logSkipped(r, skipped)
	if errors.Is(err, schedule.ErrNothingToExport) {
		payload = schedule.EmptyCalendar()
	} else if err != nil {
		h.reqLog(r).Error().Err(err).Msg("feed serialization failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write([]byte(payload))
}
