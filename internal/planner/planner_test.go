package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Model: "test-model", Timeout: 5 * time.Second}, zerolog.Nop())
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestGenerateSchedule(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply("```json\n[{\"content\":\"Write report\",\"day\":\"tomorrow\",\"time\":\"9:00 AM\",\"notes\":\"\"}]\n```")))
	})

	tasks, err := c.GenerateSchedule(context.Background(), "write the report tomorrow morning", time.Now())
	if err != nil {
		t.Fatalf("GenerateSchedule failed: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Content != "Write report" {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
}

func TestGenerateScheduleUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	if _, err := c.GenerateSchedule(context.Background(), "anything", time.Now()); err == nil {
		t.Fatal("expected error for non-200 upstream status")
	}
}

func TestGenerateScheduleUnusableContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply("I cannot produce a schedule from that.")))
	})

	if _, err := c.GenerateSchedule(context.Background(), "anything", time.Now()); err == nil {
		t.Fatal("expected error for prose-only model output")
	}
}

func TestGenerateScheduleEmptyDescription(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:0", Model: "m", Timeout: time.Second}, zerolog.Nop())
	if _, err := c.GenerateSchedule(context.Background(), "", time.Now()); err == nil {
		t.Fatal("expected error for empty description")
	}
}
