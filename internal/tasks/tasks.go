// Package tasks is the read-only boundary to the external task manager.
// daybook never mutates tasks; completions flow in as events when the user
// reports them.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"daybook/internal/config"
	"daybook/internal/logging"
	"daybook/internal/types"
)

// Lister fetches the task list for a date.
type Lister interface {
	ListTasks(ctx context.Context, date string) ([]types.Task, error)
}

// Client speaks to the task manager's HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a task-manager client, or nil when the integration is
// disabled. Callers treat a nil Lister as "no task manager configured".
func NewClient(cfg config.TasksConfig, timeout time.Duration) *Client {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ListTasks implements Lister via GET /tasks?date=YYYY-MM-DD.
func (c *Client) ListTasks(ctx context.Context, date string) ([]types.Task, error) {
	endpoint := fmt.Sprintf("%s/tasks?date=%s", c.baseURL, url.QueryEscape(date))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("task manager unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("task manager returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Tasks []types.Task `json:"tasks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode task list: %w", err)
	}

	logging.Get(logging.CategoryPlanner).Debug("Task manager returned %d tasks for %s", len(out.Tasks), date)
	return out.Tasks, nil
}
