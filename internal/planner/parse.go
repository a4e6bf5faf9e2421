package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxBatchSize caps how many tasks a single model reply may produce.
const maxBatchSize = 50

// ErrMalformedResponse means no JSON task array could be recovered from the
// model output.
var ErrMalformedResponse = errors.New("model output contains no task array")

// ExtractTasks recovers a task array from raw model output. Models wrap JSON
// in markdown fences or prose often enough that strict decoding is useless:
// fences are stripped, then the outermost bracketed span is decoded. Entries
// without content are dropped and the batch is capped at maxBatchSize.
func ExtractTasks(raw string) ([]GeneratedTask, error) {
	cleaned := stripCodeFences(raw)

	open := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if open < 0 || end < open {
		return nil, ErrMalformedResponse
	}

	var decoded []GeneratedTask
	if err := json.Unmarshal([]byte(cleaned[open:end+1]), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tasks := make([]GeneratedTask, 0, len(decoded))
	for _, t := range decoded {
		t.Content = strings.TrimSpace(t.Content)
		if t.Content == "" {
			continue
		}
		tasks = append(tasks, t)
		if len(tasks) == maxBatchSize {
			break
		}
	}
	return tasks, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "json" on the fence line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if len(first) <= 10 && !strings.ContainsAny(first, "[{") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
