package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/tasks", `{"content":"Write report","day":"tomorrow","time":"9:00 AM"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created taskResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || created.Content != "Write report" {
		t.Errorf("unexpected created task: %+v", created)
	}

	rec = env.do(http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []taskResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("got %d tasks, want 1", len(listed))
	}

	rec = env.do(http.MethodPut, "/api/tasks/"+created.ID, `{"content":"Write the report","day":"Friday","time":"10:00 AM"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated taskResponse
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if updated.Content != "Write the report" || updated.Day != "Friday" {
		t.Errorf("unexpected updated task: %+v", updated)
	}

	rec = env.do(http.MethodPost, "/api/tasks/"+created.ID+"/complete", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("complete status = %d", rec.Code)
	}
	if !env.tasks.byID[created.ID].IsCompleted {
		t.Error("task not marked completed")
	}

	rec = env.do(http.MethodPost, "/api/tasks/"+created.ID+"/complete", `{"completed":false}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("uncomplete status = %d", rec.Code)
	}
	if env.tasks.byID[created.ID].IsCompleted {
		t.Error("task still marked completed")
	}

	rec = env.do(http.MethodDelete, "/api/tasks/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(env.tasks.byID) != 0 {
		t.Error("task not deleted")
	}
}

func TestTaskValidation(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodPost, "/api/tasks", `{"content":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank content status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/tasks", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid body status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPut, "/api/tasks/unknown", `{"content":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update unknown status = %d, want 404", rec.Code)
	}

	rec = env.do(http.MethodDelete, "/api/tasks/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete unknown status = %d, want 404", rec.Code)
	}
}

func TestDeleteCompletedTasks(t *testing.T) {
	env := newTestEnv()

	for i, done := range []bool{true, false, true} {
		id := string(rune('a' + i))
		env.tasks.byID[id] = taskFixture(id, env.user.ID, done)
	}

	rec := env.do(http.MethodDelete, "/api/tasks/completed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", out["deleted"])
	}
	if len(env.tasks.byID) != 1 {
		t.Errorf("%d tasks remain, want 1", len(env.tasks.byID))
	}
}

func TestTasksRequireUser(t *testing.T) {
	env := newTestEnv()

	rec := env.doAnon(http.MethodGet, "/api/tasks")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
