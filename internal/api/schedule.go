package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/planwise/planwise/internal/metrics"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/schedule"
	"github.com/planwise/planwise/internal/store"
)

type generateRequest struct {
	Description string `json:"description"`
	// Replace drops the user's existing tasks and installs the new batch
	// atomically; the default appends.
	Replace bool `json:"replace"`
}

// GenerateSchedule asks the planner for task suggestions and persists them.
// Calls count against a per-user sliding-window quota.
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var in generateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		h.writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	ctx := r.Context()
	now := h.now()

	used, err := h.store.Usage.CountSince(ctx, user.ID, now.Add(-h.quota.window))
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("quota lookup failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if used >= h.quota.limit {
		metrics.ObservePlannerRequest("quota")
		h.writeError(w, http.StatusTooManyRequests, "schedule generation limit reached, try again later")
		return
	}

	generated, err := h.planner.GenerateSchedule(ctx, in.Description, now)
	if err != nil {
		metrics.ObservePlannerRequest("error")
		if errors.Is(err, planner.ErrMalformedResponse) {
			h.reqLog(r).Warn().Err(err).Msg("planner returned unusable output")
			h.writeError(w, http.StatusBadGateway, "the planner could not produce a schedule, try rephrasing")
			return
		}
		h.reqLog(r).Error().Err(err).Msg("planner request failed")
		h.writeError(w, http.StatusBadGateway, "schedule generation is temporarily unavailable")
		return
	}
	metrics.ObservePlannerRequest("ok")

	// The call consumed quota even if persistence fails below.
	if err := h.store.Usage.Record(ctx, user.ID); err != nil {
		h.reqLog(r).Error().Err(err).Msg("quota record failed")
	}

	tasks := make([]store.Task, 0, len(generated))
	for _, g := range generated {
		tasks = append(tasks, store.Task{
			ID:      uuid.NewString(),
			UserID:  user.ID,
			Content: g.Content,
			Day:     g.Day,
			Time:    g.Time,
			Notes:   g.Notes,
		})
	}

	if in.Replace {
		if err := h.store.Tasks.ReplaceForUser(ctx, user.ID, tasks); err != nil {
			h.reqLog(r).Error().Err(err).Msg("replace tasks failed")
			h.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	} else {
		for _, t := range tasks {
			if _, err := h.store.Tasks.Create(ctx, t); err != nil {
				h.reqLog(r).Error().Err(err).Msg("create generated task failed")
				h.writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	h.writeJSON(w, http.StatusCreated, out)
}

// ExportSchedule serves the user's resolvable tasks as an .ics download.
func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.store.Tasks.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("list tasks for export failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload, skipped, err := schedule.Export(tasks, h.now())
	h.logSkipped(r, skipped)
	if errors.Is(err, schedule.ErrNothingToExport) {
		h.writeError(w, http.StatusConflict, "no tasks with a recognizable day and time to export")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("calendar serialization failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = w.Write([]byte(payload))
}

func (h *Handler) logSkipped(r *http.Request, skipped []store.Task) {
	metrics.ObserveExportSkipped(len(skipped))
	for _, t := range skipped {
		h.reqLog(r).Debug().
			Str("task_id", t.ID).
			Str("day", t.Day).
			Str("time", t.Time).
			Msg("task skipped during export")
	}
}
