package offmind

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/offmind/offmind-mcp/internal/auth"
	"github.com/offmind/offmind-mcp/internal/instrumentation"
	"github.com/offmind/offmind-mcp/internal/logging"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxConns = 20
)

// Task status filters accepted by the proxy.
const (
	StatusIncomplete = "incomplete"
	StatusCompleted  = "completed"
)

// TokenSource supplies bearer tokens for proxy requests. Implemented by
// auth.Manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context, staleToken string) (string, error)
}

// APIError is a non-401 error response from the proxy. It is a domain
// rejection, not a credential problem, and is never retried.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxy API request failed: %d - %s", e.StatusCode, e.Body)
}

// Client is the authenticated proxy API client.
type Client struct {
	rest    *resty.Client
	tokens  TokenSource
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets a custom logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics enables proxy operation metrics.
func WithClientMetrics(metrics *instrumentation.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithClientTimeout overrides the per-request timeout.
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.rest.SetTimeout(timeout)
	}
}

// NewClient creates a proxy API client for the given base URL. Tokens are
// obtained per request from the token source.
func NewClient(apiURL string, tokens TokenSource, opts ...ClientOption) *Client {
	rest := resty.NewWithClient(&http.Client{
		Timeout: defaultTimeout,
		Transport: &http.Transport{
			MaxConnsPerHost:     defaultMaxConns,
			MaxIdleConnsPerHost: defaultMaxConns,
		},
	})
	rest.SetBaseURL(strings.TrimRight(apiURL, "/"))
	rest.SetHeader("Content-Type", "application/json")

	c := &Client{
		rest:   rest,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends one authenticated request. On 401 it forces a single token
// refresh and retries once; a second 401 means the credential cannot be
// repaired without user action.
func (c *Client) do(ctx context.Context, operation string, build func(*resty.Request) (*resty.Response, error)) error {
	start := time.Now()
	err := c.doOnce(ctx, build)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordProxyOperation(ctx, operation, status, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, build func(*resty.Request) (*resty.Response, error)) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	resp, err := build(c.request(ctx, token))
	if err != nil {
		return fmt.Errorf("proxy API request error: %w", err)
	}
	if resp.StatusCode() != http.StatusUnauthorized {
		return responseError(resp)
	}

	// The proxy rejected a token that local bookkeeping considered valid.
	// Force one refresh and retry; the refresher classifies the failure if
	// the provider refuses too.
	c.logger.Debug("proxy rejected access token, forcing refresh",
		slog.String("token", logging.SanitizeToken(token)))
	token, err = c.tokens.ForceRefresh(ctx, token)
	if err != nil {
		return err
	}

	resp, err = build(c.request(ctx, token))
	if err != nil {
		return fmt.Errorf("proxy API request error: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return auth.ErrAuthenticationFailed
	}
	return responseError(resp)
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	return c.rest.R().
		SetContext(ctx).
		SetAuthToken(token)
}

func responseError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	return &APIError{
		StatusCode: resp.StatusCode(),
		Body:       strings.TrimSpace(string(resp.Body())),
	}
}

// TaskFilter narrows a task listing. Zero value lists everything.
type TaskFilter struct {
	// Status filters by completion: StatusIncomplete or StatusCompleted.
	Status string

	// Date filters to one day, YYYY-MM-DD.
	Date string
}

// ListTasks returns tasks matching the filter.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	operation := "list_tasks"
	params := map[string]string{}
	if filter.Status != "" {
		operation = "list_" + filter.Status + "_tasks"
		params["status"] = filter.Status
	}
	if filter.Date != "" {
		operation = "list_tasks_by_date"
		params["date"] = filter.Date
	}

	var result taskList
	err := c.do(ctx, operation, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(params).SetResult(&result).Get("/api/tasks")
	})
	if err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

// TodayTasks returns the tasks scheduled for today.
func (c *Client) TodayTasks(ctx context.Context) ([]Task, error) {
	var result taskList
	err := c.do(ctx, "today_tasks", func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&result).Get("/api/tasks/today")
	})
	if err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

// SearchTasks matches query against task titles, descriptions, and checklist
// item titles, case-insensitively.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	var result taskList
	err := c.do(ctx, "search_tasks", func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParam("q", query).SetResult(&result).Get("/api/tasks/search")
	})
	if err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

// CreateTaskRequest is the payload for CreateTask.
type CreateTaskRequest struct {
	Title           string          `json:"title"`
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Checklist       []ChecklistItem `json:"checklist,omitempty"`
	RecurrentTaskID string          `json:"recurrentTaskId,omitempty"`
}

// CreateTask creates a new dated task and returns the created record.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var result Task
	err := c.do(ctx, "create_task", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&result).Post("/api/tasks")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleTask flips a task's completion status and returns the updated
// record.
func (c *Client) ToggleTask(ctx context.Context, taskID string) (*Task, error) {
	var result Task
	err := c.do(ctx, "toggle_task", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&result).Put(fmt.Sprintf("/api/tasks/%s/toggle", url.PathEscape(taskID)))
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleChecklistItem flips the done status of one checklist entry,
// addressed by its zero-based index, and returns the updated task.
func (c *Client) ToggleChecklistItem(ctx context.Context, taskID string, index int) (*Task, error) {
	var result Task
	err := c.do(ctx, "toggle_checklist_item", func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&result).Put(fmt.Sprintf("/api/tasks/%s/checklist/%d/toggle", url.PathEscape(taskID), index))
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRecurrentTasks returns all recurrent task templates.
func (c *Client) ListRecurrentTasks(ctx context.Context) ([]RecurrentTask, error) {
	var result recurrentTaskList
	err := c.do(ctx, "list_recurrent_tasks", func(req *resty.Request) (*resty.Response, error) {
		return req.SetResult(&result).Get("/api/recurrent-tasks")
	})
	if err != nil {
		return nil, err
	}
	return result.RecurrentTasks, nil
}

// CreateRecurrentTaskRequest is the payload for CreateRecurrentTask.
type CreateRecurrentTaskRequest struct {
	Title            string          `json:"title"`
	RecurrenceRule   string          `json:"recurrenceRule"`
	GenerateFromDate string          `json:"generateFromDate"`
	Description      string          `json:"description"`
	Checklist        []ChecklistItem `json:"checklist,omitempty"`
}

// CreateRecurrentTask creates a recurrent task template and returns the
// created record.
func (c *Client) CreateRecurrentTask(ctx context.Context, req CreateRecurrentTaskRequest) (*RecurrentTask, error) {
	var result RecurrentTask
	err := c.do(ctx, "create_recurrent_task", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&result).Post("/api/recurrent-tasks")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
