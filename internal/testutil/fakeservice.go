// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"todosync/internal/service"
)

// DefaultProjectID is the project used when none is given.
const DefaultProjectID = "project-1"

// ErrNotFound is returned when a resource is not found.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.Mutex
	projects map[string][]service.Task // projectID -> open tasks
	closed   []string
	nextID   int

	// ProjectID receives created tasks.
	ProjectID string

	// Error injection for testing
	CreateTaskErr error
	CloseTaskErr  error
	ListErr       error

	// ListGate, if set, blocks ListProjectTasks until it is closed.
	ListGate chan struct{}

	listCalls int
}

// NewFakeService creates a new FakeService with an empty default project.
// Created tasks get remote ids starting at 1000.
func NewFakeService() *FakeService {
	return &FakeService{
		projects:  map[string][]service.Task{DefaultProjectID: nil},
		nextID:    1000,
		ProjectID: DefaultProjectID,
	}
}

// AddTask adds an open task to a project.
func (f *FakeService) AddTask(projectID, taskID, content, due string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[projectID] = append(f.projects[projectID], service.Task{
		ID:      taskID,
		Content: content,
		Due:     due,
	})
}

// SetNextID sets the remote id given to the next created task.
func (f *FakeService) SetNextID(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID = id
}

// Closed returns the ids passed to successful CloseTask calls.
func (f *FakeService) Closed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]string, len(f.closed))
	copy(result, f.closed)
	return result
}

// ListCalls returns how many times ListProjectTasks was called.
func (f *FakeService) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// Tasks returns the open tasks of a project.
func (f *FakeService) Tasks(projectID string) []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]service.Task, len(f.projects[projectID]))
	copy(result, f.projects[projectID])
	return result
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, content string) (string, error) {
	if f.CreateTaskErr != nil {
		return "", f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id := fmt.Sprintf("%d", f.nextID)
	f.nextID++
	f.projects[f.ProjectID] = append(f.projects[f.ProjectID], service.Task{
		ID:      id,
		Content: content,
	})
	return id, nil
}

// CloseTask implements service.Service.
func (f *FakeService) CloseTask(ctx context.Context, taskID string) error {
	if f.CloseTaskErr != nil {
		return f.CloseTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for projectID, tasks := range f.projects {
		for i, t := range tasks {
			if t.ID == taskID {
				f.projects[projectID] = append(tasks[:i:i], tasks[i+1:]...)
				f.closed = append(f.closed, taskID)
				return nil
			}
		}
	}
	return ErrNotFound
}

// ListProjectTasks implements service.Service.
func (f *FakeService) ListProjectTasks(ctx context.Context, projectID string) ([]service.Task, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.ListGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tasks, ok := f.projects[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	result := make([]service.Task, len(tasks))
	copy(result, tasks)
	return result, nil
}
