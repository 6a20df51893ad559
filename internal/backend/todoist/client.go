// Package todoist implements the service.Service interface using the Todoist REST API.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"todosync/internal/config"
	"todosync/internal/logging"
	"todosync/internal/service"
)

const (
	// DefaultTimeout bounds every API call when the config does not set one.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response body is kept.
	maxErrorBody = 4096
)

// ErrNoToken is returned by New when no API token is configured.
var ErrNoToken = errors.New("api token not configured (set TODOSYNC_API_TOKEN)")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("todoist: status %d", e.StatusCode)
	}
	return fmt.Sprintf("todoist: status %d: %s", e.StatusCode, e.Body)
}

// Client implements service.Service using the Todoist REST API.
type Client struct {
	http      *http.Client
	baseURL   string
	projectID string
	timeout   time.Duration
	log       *zap.Logger
}

// New creates a new Todoist client.
// Every request carries the configured token as a bearer credential.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, ErrNoToken
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIToken,
		TokenType:   "Bearer",
	})
	httpClient := oauth2.NewClient(ctx, tokenSource)

	return NewWithHTTPClient(httpClient, cfg.APIURL, cfg.ProjectID, cfg.Timeout, log), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// The HTTP client is responsible for authorization.
func NewWithHTTPClient(httpClient *http.Client, baseURL, projectID string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: projectID,
		timeout:   timeout,
		log:       log.Named("todoist"),
	}
}

type createRequest struct {
	Content   string `json:"content"`
	ProjectID string `json:"project_id,omitempty"`
}

type apiTask struct {
	ID      remoteID `json:"id"`
	Content string   `json:"content"`
	Due     *struct {
		Date string `json:"date"`
	} `json:"due"`
}

// CreateTask creates a task in the configured project.
func (c *Client) CreateTask(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(createRequest{Content: content, ProjectID: c.projectID})
	if err != nil {
		return "", err
	}

	var created apiTask
	if err := c.do(ctx, http.MethodPost, c.baseURL, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("todoist: create response has no id")
	}

	logging.WithRequestID(ctx, c.log).Info("task created", zap.String("todoist_id", string(created.ID)))
	return string(created.ID), nil
}

// CloseTask marks a task as done.
func (c *Client) CloseTask(ctx context.Context, taskID string) error {
	endpoint := c.baseURL + "/" + url.PathEscape(taskID) + "/close"
	if err := c.do(ctx, http.MethodPost, endpoint, nil, nil); err != nil {
		return err
	}

	logging.WithRequestID(ctx, c.log).Info("task closed", zap.String("todoist_id", taskID))
	return nil
}

// ListProjectTasks returns the open tasks of a project in API order.
func (c *Client) ListProjectTasks(ctx context.Context, projectID string) ([]service.Task, error) {
	endpoint := c.baseURL
	if projectID != "" {
		endpoint += "?" + url.Values{"project_id": {projectID}}.Encode()
	}

	var items []apiTask
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &items); err != nil {
		return nil, err
	}

	result := make([]service.Task, 0, len(items))
	for _, item := range items {
		task := service.Task{
			ID:      string(item.ID),
			Content: item.Content,
		}
		if item.Due != nil {
			task.Due = item.Due.Date
		}
		result = append(result, task)
	}

	logging.WithRequestID(ctx, c.log).Info("tasks fetched",
		zap.String("project_id", projectID), zap.Int("count", len(result)))
	return result, nil
}

// do sends one request and decodes a 2xx JSON response into out (if non-nil).
// It never retries.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logging.WithRequestID(ctx, c.log).With(zap.String("method", method), zap.String("url", endpoint))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("todoist: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		reqID := logging.RequestID(ctx)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		// Todoist deduplicates writes by request id.
		req.Header.Set("X-Request-Id", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("request failed", zap.Error(err))
		return wrapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		log.Error("unexpected response", zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
		return wrapError(apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Error("invalid response body", zap.Error(err))
		return fmt.Errorf("todoist: decode response: %w", err)
	}
	return nil
}

// remoteID decodes an id sent as either a JSON string or number.
type remoteID string

func (id *remoteID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = remoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("todoist: invalid id %s", data)
	}
	*id = remoteID(n.String())
	return nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token rejected: %w", err)
		case http.StatusNotFound:
			return fmt.Errorf("not found: %w", err)
		}
	}

	return err
}
