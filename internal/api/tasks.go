package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/planwise/planwise/internal/store"
)

type taskPayload struct {
	Content string `json:"content"`
	Day     string `json:"day"`
	Time    string `json:"time"`
	Notes   string `json:"notes"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Day         string    `json:"day"`
	Time        string    `json:"time"`
	Notes       string    `json:"notes,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(t store.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Content:     t.Content,
		Day:         t.Day,
		Time:        t.Time,
		Notes:       t.Notes,
		IsCompleted: t.IsCompleted,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ListTasks returns all of the user's tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := h.store.Tasks.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("list tasks failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// CreateTask adds a single task supplied by the user.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var in taskPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		h.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	created, err := h.store.Tasks.Create(r.Context(), store.Task{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Content: in.Content,
		Day:     in.Day,
		Time:    in.Time,
		Notes:   in.Notes,
	})
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("create task failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toTaskResponse(*created))
}

// UpdateTask replaces the editable fields of a task.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var in taskPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		h.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	err := h.store.Tasks.Update(r.Context(), store.Task{
		ID:      id,
		UserID:  user.ID,
		Content: in.Content,
		Day:     in.Day,
		Time:    in.Time,
		Notes:   in.Notes,
	})
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Str("task_id", id).Msg("update task failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	updated, err := h.store.Tasks.GetByID(r.Context(), user.ID, id)
	if err != nil {
		h.reqLog(r).Error().Err(err).Str("task_id", id).Msg("reload task failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, toTaskResponse(*updated))
}

// CompleteTask toggles a task's completion flag. The body may carry
// {"completed": false} to un-complete; the default is true.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	in := struct {
		Completed *bool `json:"completed"`
	}{}
	if r.Body != nil {
		// An empty body means "mark complete".
		_ = json.NewDecoder(r.Body).Decode(&in)
	}
	completed := true
	if in.Completed != nil {
		completed = *in.Completed
	}

	err := h.store.Tasks.SetCompleted(r.Context(), user.ID, id, completed)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Str("task_id", id).Msg("set task completed failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask removes a single task.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	err := h.store.Tasks.Delete(r.Context(), user.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		h.reqLog(r).Error().Err(err).Str("task_id", id).Msg("delete task failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteCompletedTasks clears every completed task for the user.
func (h *Handler) DeleteCompletedTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	n, err := h.store.Tasks.DeleteCompleted(r.Context(), user.ID)
	if err != nil {
		h.reqLog(r).Error().Err(err).Msg("delete completed tasks failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
