// Package googletasks implements the service.Service interface using Google Tasks API.
// The project is a Google task list; an empty project id means the default list.
package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todosync/internal/config"
	"todosync/internal/logging"
	"todosync/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks fetched in the single list request.
	PageSize = 100

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"
)

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
	log     *zap.Logger
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist (see the login command).
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	// Load OAuth client config
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	// Load token
	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json (run: todosync login): %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Create token source that auto-refreshes
	tokenSource := oauthConfig.TokenSource(ctx, &token)
	httpClient := oauth2.NewClient(ctx, tokenSource)

	return NewWithHTTPClient(ctx, httpClient, cfg.ProjectID, cfg.Timeout, log)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, timeout time.Duration, log *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{svc: svc, listID: listID, timeout: timeout, log: log.Named("googletasks")}, nil
}

// CreateTask creates a new task in the configured list.
func (c *Client) CreateTask(ctx context.Context, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{Title: content}).Context(ctx).Do()
	if err != nil {
		logging.WithRequestID(ctx, c.log).Error("failed to create task", zap.Error(err))
		return "", wrapError(err)
	}

	logging.WithRequestID(ctx, c.log).Info("task created", zap.String("task_id", created.Id))
	return created.Id, nil
}

// CloseTask marks a task in the configured list as completed.
func (c *Client) CloseTask(ctx context.Context, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.svc.Tasks.Patch(c.listID, taskID, &tasks.Task{
		Status: "completed",
	}).Context(ctx).Do()
	if err != nil {
		logging.WithRequestID(ctx, c.log).Error("failed to complete task", zap.String("task_id", taskID), zap.Error(err))
		return wrapError(err)
	}

	logging.WithRequestID(ctx, c.log).Info("task completed", zap.String("task_id", taskID))
	return nil
}

// ListProjectTasks returns the open tasks of a list in API order.
// Only the first page is fetched.
func (c *Client) ListProjectTasks(ctx context.Context, projectID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if projectID == "" {
		projectID = DefaultListID
	}

	resp, err := c.svc.Tasks.List(projectID).
		MaxResults(PageSize).
		ShowCompleted(false).
		ShowDeleted(false).
		ShowHidden(false).
		Context(ctx).
		Do()
	if err != nil {
		logging.WithRequestID(ctx, c.log).Error("failed to list tasks", zap.String("list_id", projectID), zap.Error(err))
		return nil, wrapError(err)
	}

	result := make([]service.Task, 0, len(resp.Items))
	for _, task := range resp.Items {
		result = append(result, service.Task{
			ID:      task.Id,
			Content: task.Title,
			Due:     dueDate(task.Due),
		})
	}
	return result, nil
}

// dueDate trims an RFC 3339 due timestamp to its date.
func dueDate(due string) string {
	if len(due) >= len("2006-01-02") {
		return due[:len("2006-01-02")]
	}
	return due
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	// Check for timeout
	if strings.Contains(errStr, "context deadline exceeded") {
		return fmt.Errorf("request timed out")
	}

	// Check for auth errors
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") {
		return fmt.Errorf("token expired or revoked (run: todosync login)")
	}

	// Check for not found
	if strings.Contains(errStr, "404") {
		return fmt.Errorf("not found")
	}

	return err
}
