package syncer_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"todosync/internal/store"
	"todosync/internal/syncer"
	"todosync/internal/testutil"
)

func setup(t *testing.T) (*syncer.Synchronizer, *store.Store, *testutil.FakeService) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "todo_list.json"), zap.NewNop())
	svc := testutil.NewFakeService()
	return syncer.New(st, svc, testutil.DefaultProjectID, zap.NewNop()), st, svc
}

func TestAddTask_SequentialIDs(t *testing.T) {
	s, st, _ := setup(t)
	ctx := context.Background()

	const n = 7
	for i := 1; i <= n; i++ {
		res := s.AddTask(ctx, fmt.Sprintf("task %d", i))
		if res.Outcome != syncer.Synced {
			t.Fatalf("add %d: expected synced, got %s", i, res.Outcome)
		}
		if res.Task.ID != i {
			t.Errorf("add %d: expected id %d, got %d", i, i, res.Task.ID)
		}
	}

	state := st.Load()
	if state.NextID != n {
		t.Errorf("expected next id %d, got %d", n, state.NextID)
	}
	for i, task := range state.Tasks {
		if task.ID != i+1 {
			t.Errorf("task %d has id %d", i, task.ID)
		}
		if !task.HasRemote() {
			t.Errorf("task %d has no remote id", task.ID)
		}
	}
}

func TestAddTask_RemoteFailureKeepsLocal(t *testing.T) {
	s, st, svc := setup(t)
	svc.CreateTaskErr = errors.New("service unavailable")

	res := s.AddTask(context.Background(), "buy milk")

	if res.Outcome != syncer.LocalOnly {
		t.Errorf("expected local only, got %s", res.Outcome)
	}
	if res.Err == nil {
		t.Error("expected remote error to be reported")
	}

	state := st.Load()
	if len(state.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(state.Tasks))
	}
	want := store.Task{ID: 1, Description: "buy milk"}
	if state.Tasks[0] != want {
		t.Errorf("expected %+v, got %+v", want, state.Tasks[0])
	}
}

func TestAddThenComplete_Scenario(t *testing.T) {
	s, st, svc := setup(t)
	ctx := context.Background()
	svc.SetNextID(999)

	res := s.AddTask(ctx, "buy milk")
	if res.Outcome != syncer.Synced {
		t.Fatalf("expected synced, got %s", res.Outcome)
	}
	want := store.Task{ID: 1, Description: "buy milk", RemoteID: "999"}
	state := st.Load()
	if len(state.Tasks) != 1 || state.Tasks[0] != want {
		t.Fatalf("expected [%+v], got %+v", want, state.Tasks)
	}

	svc.CloseTaskErr = errors.New("boom")
	res = s.CompleteTask(ctx, 1)
	if res.Outcome != syncer.LocalOnly {
		t.Errorf("expected local only, got %s", res.Outcome)
	}

	want.Completed = true
	state = st.Load()
	if state.Tasks[0] != want {
		t.Errorf("expected %+v, got %+v", want, state.Tasks[0])
	}
}

func TestCompleteTask_Synced(t *testing.T) {
	s, st, svc := setup(t)
	ctx := context.Background()

	added := s.AddTask(ctx, "water plants")
	res := s.CompleteTask(ctx, added.Task.ID)

	if res.Outcome != syncer.Synced {
		t.Errorf("expected synced, got %s", res.Outcome)
	}
	if closed := svc.Closed(); len(closed) != 1 || closed[0] != added.Task.RemoteID {
		t.Errorf("expected remote %s closed, got %v", added.Task.RemoteID, closed)
	}
	if !st.Load().Tasks[0].Completed {
		t.Error("expected local task completed")
	}
}

func TestCompleteTask_NoRemoteID(t *testing.T) {
	s, st, svc := setup(t)
	ctx := context.Background()

	svc.CreateTaskErr = errors.New("offline")
	s.AddTask(ctx, "local only")
	svc.CreateTaskErr = nil

	res := s.CompleteTask(ctx, 1)

	if res.Outcome != syncer.LocalOnly {
		t.Errorf("expected local only, got %s", res.Outcome)
	}
	if res.Err != nil {
		t.Errorf("expected no remote error, got %v", res.Err)
	}
	if len(svc.Closed()) != 0 {
		t.Error("close must not be called without a remote id")
	}
	if !st.Load().Tasks[0].Completed {
		t.Error("expected local task completed")
	}
}

func TestCompleteTask_NotFound(t *testing.T) {
	s, st, _ := setup(t)
	ctx := context.Background()

	s.AddTask(ctx, "only task")
	before, err := os.ReadFile(st.Path())
	if err != nil {
		t.Fatalf("failed to read state: %v", err)
	}

	res := s.CompleteTask(ctx, 42)

	if res.Outcome != syncer.NotFound {
		t.Errorf("expected not found, got %s", res.Outcome)
	}
	if res.Task.ID != 42 {
		t.Errorf("expected requested id in result, got %d", res.Task.ID)
	}
	after, _ := os.ReadFile(st.Path())
	if !bytes.Equal(before, after) {
		t.Errorf("state changed:\n%s\n---\n%s", before, after)
	}
}

func TestViewTasks_ReplacesState(t *testing.T) {
	s, st, svc := setup(t)
	ctx := context.Background()

	// Local bookkeeping that the resync discards.
	svc.CreateTaskErr = errors.New("offline")
	s.AddTask(ctx, "never synced")
	s.AddTask(ctx, "also local")
	s.CompleteTask(ctx, 1)
	svc.CreateTaskErr = nil

	svc.AddTask(testutil.DefaultProjectID, "r1", "first", "2024-05-01")
	svc.AddTask(testutil.DefaultProjectID, "r2", "second", "")
	svc.AddTask(testutil.DefaultProjectID, "r3", "third", "")

	res := s.ViewTasks(ctx)

	if res.Outcome != syncer.Synced {
		t.Fatalf("expected synced, got %s", res.Outcome)
	}
	want := []store.Task{
		{ID: 1, Description: "first", RemoteID: "r1", Due: "2024-05-01"},
		{ID: 2, Description: "second", RemoteID: "r2"},
		{ID: 3, Description: "third", RemoteID: "r3"},
	}
	state := st.Load()
	if len(state.Tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %+v", len(want), state.Tasks)
	}
	for i := range want {
		if state.Tasks[i] != want[i] {
			t.Errorf("task %d: expected %+v, got %+v", i, want[i], state.Tasks[i])
		}
		if res.Tasks[i] != want[i] {
			t.Errorf("result %d: expected %+v, got %+v", i, want[i], res.Tasks[i])
		}
	}
	if state.NextID != 3 {
		t.Errorf("expected next id 3, got %d", state.NextID)
	}

	// New tasks continue after the refreshed ids.
	if added := s.AddTask(ctx, "fourth"); added.Task.ID != 4 {
		t.Errorf("expected id 4, got %d", added.Task.ID)
	}
}

func TestViewTasks_EmptyProject(t *testing.T) {
	s, st, _ := setup(t)
	ctx := context.Background()
	s.AddTask(ctx, "stale")

	res := s.ViewTasks(ctx)

	if res.Outcome != syncer.NoTasks {
		t.Errorf("expected no tasks, got %s", res.Outcome)
	}
	state := st.Load()
	if len(state.Tasks) != 0 || state.NextID != 0 {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestViewTasks_FetchFailureKeepsState(t *testing.T) {
	s, st, svc := setup(t)
	ctx := context.Background()
	s.AddTask(ctx, "keep me")
	before, _ := os.ReadFile(st.Path())

	svc.ListErr = errors.New("timeout")
	res := s.ViewTasks(ctx)

	if res.Outcome != syncer.FetchFailed {
		t.Errorf("expected fetch failed, got %s", res.Outcome)
	}
	after, _ := os.ReadFile(st.Path())
	if !bytes.Equal(before, after) {
		t.Error("state changed after failed fetch")
	}
}

func TestAddTask_ConcurrentCallsKeepEveryTask(t *testing.T) {
	s, st, _ := setup(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AddTask(ctx, fmt.Sprintf("task %d", i))
		}(i)
	}
	wg.Wait()

	state := st.Load()
	if len(state.Tasks) != n || state.NextID != n {
		t.Fatalf("expected %d tasks and next id %d, got %d and %d", n, n, len(state.Tasks), state.NextID)
	}
	seen := make(map[int]bool)
	for _, task := range state.Tasks {
		if seen[task.ID] {
			t.Errorf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestAddTask_SynchronizersOnSameFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo_list.json")
	svc := testutil.NewFakeService()
	first := syncer.New(store.New(path, zap.NewNop()), svc, testutil.DefaultProjectID, zap.NewNop())
	second := syncer.New(store.New(path, zap.NewNop()), svc, testutil.DefaultProjectID, zap.NewNop())
	ctx := context.Background()

	const perSyncer = 25
	var wg sync.WaitGroup
	for _, s := range []*syncer.Synchronizer{first, second} {
		for i := 0; i < perSyncer; i++ {
			wg.Add(1)
			go func(s *syncer.Synchronizer, i int) {
				defer wg.Done()
				s.AddTask(ctx, fmt.Sprintf("task %d", i))
			}(s, i)
		}
	}
	wg.Wait()

	state := store.New(path, zap.NewNop()).Load()
	if len(state.Tasks) != 2*perSyncer || state.NextID != 2*perSyncer {
		t.Fatalf("expected %d tasks, got %d with next id %d", 2*perSyncer, len(state.Tasks), state.NextID)
	}
	seen := make(map[int]bool)
	for _, task := range state.Tasks {
		if seen[task.ID] {
			t.Errorf("duplicate id %d", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestAddTask_CorruptFileIsPreserved(t *testing.T) {
	s, st, _ := setup(t)
	corrupt := []byte(`{"tasks":[{"id":7,"task":"precious","completed":false,"todoist_id":"8`)
	if err := os.WriteFile(st.Path(), corrupt, 0644); err != nil {
		t.Fatalf("failed to write state: %v", err)
	}

	res := s.AddTask(context.Background(), "next")

	if res.Outcome != syncer.Synced {
		t.Errorf("expected synced, got %s", res.Outcome)
	}
	matches, _ := filepath.Glob(st.Path() + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("expected the unreadable file to be kept, got %v", matches)
	}
	if kept, _ := os.ReadFile(matches[0]); !bytes.Equal(kept, corrupt) {
		t.Errorf("kept copy differs: %q", kept)
	}
}

func TestAddTask_SaveFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	st := store.New(filepath.Join(blocker, "todo_list.json"), zap.NewNop())
	s := syncer.New(st, testutil.NewFakeService(), testutil.DefaultProjectID, zap.NewNop())

	res := s.AddTask(context.Background(), "buy milk")

	if res.Outcome != syncer.SaveFailed {
		t.Errorf("expected save failed, got %s", res.Outcome)
	}
	if res.SaveErr == nil {
		t.Error("expected the save error to be reported")
	}
	if res.Task.Description != "buy milk" {
		t.Errorf("expected description in result, got %+v", res.Task)
	}
}

func TestCompleteTask_SaveFailureSkipsRemote(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	svc := testutil.NewFakeService()
	st := store.New(filepath.Join(blocker, "todo_list.json"), zap.NewNop())
	s := syncer.New(st, svc, testutil.DefaultProjectID, zap.NewNop())

	res := s.CompleteTask(context.Background(), 1)

	if res.Outcome != syncer.SaveFailed {
		t.Errorf("expected save failed, got %s", res.Outcome)
	}
	if len(svc.Closed()) != 0 {
		t.Error("remote close must not run when the local change was not saved")
	}
}

func TestViewTasks_SharedFetchOutlivesCancelledCaller(t *testing.T) {
	s, _, svc := setup(t)
	svc.AddTask(testutil.DefaultProjectID, "r1", "first", "")
	gate := make(chan struct{})
	svc.ListGate = gate

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan syncer.Result, 1)
	go func() { firstDone <- s.ViewTasks(firstCtx) }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.ListCalls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}
	secondDone := make(chan syncer.Result, 1)
	go func() { secondDone <- s.ViewTasks(context.Background()) }()
	time.Sleep(100 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	if res := <-secondDone; res.Outcome != syncer.Synced || len(res.Tasks) != 1 {
		t.Errorf("second caller: unexpected result %+v", res)
	}
	<-firstDone
	if calls := svc.ListCalls(); calls != 1 {
		t.Errorf("expected one shared fetch, got %d", calls)
	}
}

func TestViewTasks_ConcurrentCallsShareFetch(t *testing.T) {
	s, st, svc := setup(t)
	svc.AddTask(testutil.DefaultProjectID, "r1", "first", "")
	gate := make(chan struct{})
	svc.ListGate = gate
	ctx := context.Background()

	results := make(chan syncer.Result, 2)
	go func() { results <- s.ViewTasks(ctx) }()

	// Wait for the first fetch to be in flight before starting the second.
	deadline := time.Now().Add(2 * time.Second)
	for svc.ListCalls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first fetch never started")
		}
		time.Sleep(time.Millisecond)
	}
	go func() { results <- s.ViewTasks(ctx) }()
	time.Sleep(100 * time.Millisecond)
	close(gate)

	for i := 0; i < 2; i++ {
		if res := <-results; res.Outcome != syncer.Synced || len(res.Tasks) != 1 {
			t.Errorf("unexpected result: %+v", res)
		}
	}
	if calls := svc.ListCalls(); calls != 1 {
		t.Errorf("expected one shared fetch, got %d", calls)
	}
	if state := st.Load(); len(state.Tasks) != 1 {
		t.Errorf("expected 1 task, got %+v", state.Tasks)
	}
}
