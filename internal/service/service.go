// Package service defines the backend-agnostic interface for remote task operations.
package service

import "context"

// Service defines the interface for the remote task-tracking backend.
// All remote API calls go through this interface.
// The synchronizer never imports a backend SDK directly.
type Service interface {
	// CreateTask creates a task with the given content in the configured project.
	// Returns the remote-assigned task ID.
	CreateTask(ctx context.Context, content string) (string, error)

	// CloseTask marks a remote task as done.
	CloseTask(ctx context.Context, taskID string) error

	// ListProjectTasks returns all open tasks in a project, in API order.
	// A single request; no pagination.
	ListProjectTasks(ctx context.Context, projectID string) ([]Task, error)
}

// Unavailable returns a Service whose every call fails with err.
// Used when a backend cannot be constructed, so local changes still commit.
func Unavailable(err error) Service {
	return unavailable{err: err}
}

type unavailable struct {
	err error
}

func (u unavailable) CreateTask(ctx context.Context, content string) (string, error) {
	return "", u.err
}

func (u unavailable) CloseTask(ctx context.Context, taskID string) error {
	return u.err
}

func (u unavailable) ListProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	return nil, u.err
}
