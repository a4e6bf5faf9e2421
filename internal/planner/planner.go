// Package planner turns a free-text description of tasks and availability
// into structured task suggestions by calling an OpenAI-compatible chat
// completions endpoint.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// GeneratedTask is one task suggestion extracted from the model output.
// Day and Time are free-form labels; they are resolved later, at export time.
type GeneratedTask struct {
	Content string `json:"content"`
	Day     string `json:"day"`
	Time    string `json:"time"`
	Notes   string `json:"notes"`
}

// Options configures the planner client.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls the configured chat completions endpoint.
type Client struct {
	http  *resty.Client
	model string
	log   zerolog.Logger
}

// New creates a planner client. The base URL should point at the API root,
// e.g. https://api.openai.com; the /v1/chat/completions path is appended per
// request.
func New(opts Options, log zerolog.Logger) *Client {
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(opts.Timeout)
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}

	return &Client{http: c, model: opts.Model, log: log}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const systemPromptFormat = `You are a scheduling assistant. Today is %s (%s).
Read the user's description of their tasks and availability and respond with
ONLY a JSON array. Each element must be an object with string fields
"content", "day", "time" and "notes". Use day values like "2025-04-12",
"tomorrow", a weekday name, or "April 12". Use time values like "9:00 AM" or
"9:00 AM - 10:30 AM". Leave "notes" empty unless the user gave extra detail.`

// GenerateSchedule sends the user's description to the model and extracts
// the suggested tasks from its reply. The reference time anchors relative
// day labels in the prompt.
func (c *Client) GenerateSchedule(ctx context.Context, description string, ref time.Time) ([]GeneratedTask, error) {
	if description == "" {
		return nil, fmt.Errorf("empty schedule description")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPromptFormat, ref.Format("2006-01-02"), ref.Weekday())},
			{Role: "user", Content: description},
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&reqBody).
		Post("/v1/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("planner request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("planner status %d: %s", resp.StatusCode(), resp.String())
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body(), &cr); err != nil {
		return nil, fmt.Errorf("decode planner response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("planner response has no choices")
	}

	tasks, err := ExtractTasks(cr.Choices[0].Message.Content)
	if err != nil {
		c.log.Debug().Err(err).Str("content", cr.Choices[0].Message.Content).Msg("unusable planner output")
		return nil, err
	}
	return tasks, nil
}
