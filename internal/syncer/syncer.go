// Package syncer keeps the local task list and the remote project in step.
//
// Local writes always win: add and complete commit to the state file whatever
// the remote outcome, and a remote failure only degrades the reported
// outcome. Nothing is retried. The view operation replaces the local list
// wholesale with the remote project's current tasks.
package syncer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"todosync/internal/logging"
	"todosync/internal/service"
	"todosync/internal/store"
)

// Outcome classifies the result of an operation.
type Outcome int

const (
	// Synced means the change reached both the local list and the remote project.
	Synced Outcome = iota

	// LocalOnly means the local change committed but the remote call failed or was skipped.
	LocalOnly

	// NotFound means no local task has the requested id.
	NotFound

	// NoTasks means the remote project is empty.
	NoTasks

	// FetchFailed means the remote project could not be read; local state is unchanged.
	FetchFailed

	// SaveFailed means the local change could not be written to the state file.
	SaveFailed
)

var errTaskNotFound = errors.New("task not found")

func (o Outcome) String() string {
	switch o {
	case Synced:
		return "synced"
	case LocalOnly:
		return "local_only"
	case NotFound:
		return "not_found"
	case NoTasks:
		return "no_tasks"
	case FetchFailed:
		return "fetch_failed"
	case SaveFailed:
		return "save_failed"
	default:
		return "unknown"
	}
}

// Result is what an operation reports back to the command surface.
type Result struct {
	Outcome Outcome

	// Task is the added or completed task.
	Task store.Task

	// Tasks is the refreshed list (view only).
	Tasks []store.Task

	// Err is the remote error behind a degraded outcome, if any.
	Err error

	// SaveErr is set when the state file could not be written.
	SaveErr error
}

// Synchronizer runs the add, complete and view operations.
// It is safe for concurrent use. Store updates are serialized within the
// process by a mutex and across processes by the store's file lock; remote
// calls are not serialized.
type Synchronizer struct {
	mu        sync.Mutex
	store     *store.Store
	remote    service.Service
	projectID string
	log       *zap.Logger
	views     singleflight.Group
}

// New creates a Synchronizer.
func New(st *store.Store, remote service.Service, projectID string, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		store:     st,
		remote:    remote,
		projectID: projectID,
		log:       log.Named("syncer"),
	}
}

// begin tags ctx with a fresh request id and returns a matching logger.
func (s *Synchronizer) begin(ctx context.Context, op string) (context.Context, *zap.Logger) {
	ctx = logging.ContextWithRequestID(ctx, uuid.NewString())
	return ctx, logging.WithRequestID(ctx, s.log).With(zap.String("op", op))
}

// AddTask creates a task remotely and records it locally.
// The local record is written even when the remote call fails.
func (s *Synchronizer) AddTask(ctx context.Context, description string) Result {
	ctx, log := s.begin(ctx, "add")

	remoteID, remoteErr := s.remote.CreateTask(ctx, description)
	if remoteErr != nil {
		log.Error("remote create failed", zap.Error(remoteErr))
		remoteID = ""
	}

	task := store.Task{Description: description, RemoteID: remoteID}
	s.mu.Lock()
	saveErr := s.store.Update(func(st *store.State) error {
		task = st.Add(description, remoteID)
		return nil
	})
	s.mu.Unlock()

	log = log.With(zap.Int("task_id", task.ID))
	if saveErr != nil {
		log.Error("task not persisted", zap.String("remote_id", remoteID), zap.Error(saveErr))
		return Result{Outcome: SaveFailed, Task: task, Err: remoteErr, SaveErr: saveErr}
	}

	if remoteErr != nil || remoteID == "" {
		return Result{Outcome: LocalOnly, Task: task, Err: remoteErr}
	}
	log.Info("task added", zap.String("remote_id", remoteID))
	return Result{Outcome: Synced, Task: task}
}

// CompleteTask marks the task with the given id as completed, then closes it remotely.
// The local flag is set regardless of the remote outcome. If the flag cannot
// be saved the remote task is left open.
func (s *Synchronizer) CompleteTask(ctx context.Context, id int) Result {
	ctx, log := s.begin(ctx, "complete")
	log = log.With(zap.Int("task_id", id))

	task := store.Task{ID: id}
	s.mu.Lock()
	err := s.store.Update(func(st *store.State) error {
		t, ok := st.Complete(id)
		if !ok {
			return errTaskNotFound
		}
		task = t
		return nil
	})
	s.mu.Unlock()

	switch {
	case errors.Is(err, errTaskNotFound):
		log.Info("task not found")
		return Result{Outcome: NotFound, Task: task}
	case err != nil:
		log.Error("completion not persisted", zap.Error(err))
		return Result{Outcome: SaveFailed, Task: task, SaveErr: err}
	}

	if !task.HasRemote() {
		log.Info("task has no remote counterpart")
		return Result{Outcome: LocalOnly, Task: task}
	}

	if err := s.remote.CloseTask(ctx, task.RemoteID); err != nil {
		log.Error("remote close failed", zap.String("remote_id", task.RemoteID), zap.Error(err))
		return Result{Outcome: LocalOnly, Task: task, Err: err}
	}

	log.Info("task completed", zap.String("remote_id", task.RemoteID))
	return Result{Outcome: Synced, Task: task}
}

// ViewTasks refreshes the local list from the configured project.
func (s *Synchronizer) ViewTasks(ctx context.Context) Result {
	return s.ViewProject(ctx, s.projectID)
}

// ViewProject fetches a project's tasks and replaces the local list with them.
// Local ids are reassigned 1..N in remote order; completion flags and tasks
// that only exist locally are discarded. On fetch failure nothing changes.
// Concurrent calls for the same project share one remote request, which is
// not cancelled when the caller that started it goes away.
func (s *Synchronizer) ViewProject(ctx context.Context, projectID string) Result {
	ctx, log := s.begin(ctx, "view")
	log = log.With(zap.String("project_id", projectID))

	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.views.Do(projectID, func() (any, error) {
		return s.remote.ListProjectTasks(fetchCtx, projectID)
	})
	if err != nil {
		log.Error("remote fetch failed", zap.Error(err))
		return Result{Outcome: FetchFailed, Err: err}
	}
	remoteTasks, _ := v.([]service.Task)

	fresh := store.FromRemote(remoteTasks)

	s.mu.Lock()
	saveErr := s.store.Update(func(st *store.State) error {
		*st = fresh
		return nil
	})
	s.mu.Unlock()

	outcome := Synced
	if len(fresh.Tasks) == 0 {
		outcome = NoTasks
	}
	if saveErr != nil {
		log.Error("refreshed list not persisted", zap.Error(saveErr))
		return Result{Outcome: outcome, Tasks: fresh.Tasks, SaveErr: saveErr}
	}
	log.Info("local list replaced from remote", zap.Int("count", len(fresh.Tasks)), zap.Bool("shared", shared))
	return Result{Outcome: outcome, Tasks: fresh.Tasks}
}
