// Package store persists the local task list as a pretty-printed JSON file.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"todosync/internal/service"
)

// Task is a locally tracked task.
type Task struct {
	ID          int    `json:"id"`
	Description string `json:"task"`
	Completed   bool   `json:"completed"`
	RemoteID    string `json:"todoist_id,omitempty"`
	Due         string `json:"due,omitempty"`
}

// HasRemote reports whether the task was created remotely.
func (t Task) HasRemote() bool {
	return t.RemoteID != ""
}

// State is the aggregate persisted to the state file.
type State struct {
	Tasks []Task `json:"tasks"`

	// NextID is the last identifier handed out.
	NextID int `json:"last_task_id"`
}

// NewState returns an empty state.
func NewState() State {
	return State{Tasks: []Task{}}
}

// Add appends a new task with the next identifier and returns it.
func (s *State) Add(description, remoteID string) Task {
	s.NextID++
	task := Task{
		ID:          s.NextID,
		Description: description,
		RemoteID:    remoteID,
	}
	s.Tasks = append(s.Tasks, task)
	return task
}

// Find returns the index of the task with the given id.
func (s *State) Find(id int) (int, bool) {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Complete marks the task with the given id as completed.
// Completion is one-way; completing twice is a no-op.
func (s *State) Complete(id int) (Task, bool) {
	i, ok := s.Find(id)
	if !ok {
		return Task{}, false
	}
	s.Tasks[i].Completed = true
	return s.Tasks[i], true
}

// FromRemote builds a state from a remote project snapshot.
// Tasks get identifiers 1..N in API order. The counter is the largest
// numeric remote id seen, or N if that is smaller.
func FromRemote(tasks []service.Task) State {
	st := NewState()
	for i, rt := range tasks {
		st.Tasks = append(st.Tasks, Task{
			ID:          i + 1,
			Description: rt.Content,
			RemoteID:    rt.ID,
			Due:         rt.Due,
		})
		if n, err := strconv.Atoi(rt.ID); err == nil && n > st.NextID {
			st.NextID = n
		}
	}
	if st.NextID < len(st.Tasks) {
		st.NextID = len(st.Tasks)
	}
	return st
}

// normalize gives every task a unique positive id and keeps NextID
// at or above the largest id. Returns true if anything changed.
func (s *State) normalize() bool {
	changed := false
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.NextID < 0 {
		s.NextID = 0
		changed = true
	}
	for _, t := range s.Tasks {
		if t.ID > s.NextID {
			s.NextID = t.ID
			changed = true
		}
	}
	seen := make(map[int]bool, len(s.Tasks))
	for i := range s.Tasks {
		id := s.Tasks[i].ID
		if id <= 0 || seen[id] {
			s.NextID++
			s.Tasks[i].ID = s.NextID
			changed = true
		}
		seen[s.Tasks[i].ID] = true
	}
	return changed
}

// UnmarshalJSON accepts last_task_id as a number or a numeric string.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tasks  []Task          `json:"tasks"`
		NextID json.RawMessage `json:"last_task_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, err := flexString(raw.NextID)
	if err != nil {
		return fmt.Errorf("last_task_id: %w", err)
	}
	*s = State{Tasks: raw.Tasks}
	if next != "" {
		if s.NextID, err = strconv.Atoi(next); err != nil {
			return fmt.Errorf("last_task_id: %w", err)
		}
	}
	return nil
}

// UnmarshalJSON accepts the current layout plus older spellings:
// "local_id" for the id, "content" for the description, and a string
// "id" (a raw remote dump) which is taken as the remote id.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		LocalID   *int            `json:"local_id"`
		Task      *string         `json:"task"`
		Content   *string         `json:"content"`
		Completed bool            `json:"completed"`
		RemoteID  json.RawMessage `json:"todoist_id"`
		Due       json.RawMessage `json:"due"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task{Completed: raw.Completed}

	switch {
	case raw.Task != nil:
		t.Description = *raw.Task
	case raw.Content != nil:
		t.Description = *raw.Content
	}

	remoteID, err := flexString(raw.RemoteID)
	if err != nil {
		return fmt.Errorf("todoist_id: %w", err)
	}
	t.RemoteID = remoteID

	if raw.LocalID != nil {
		t.ID = *raw.LocalID
	}
	if len(raw.ID) > 0 && !isNull(raw.ID) {
		var n int
		if err := json.Unmarshal(raw.ID, &n); err == nil {
			if raw.LocalID == nil {
				t.ID = n
			}
		} else {
			var s string
			if err := json.Unmarshal(raw.ID, &s); err != nil {
				return fmt.Errorf("id: %w", err)
			}
			if t.RemoteID == "" {
				t.RemoteID = s
			}
		}
	}

	due, err := parseDue(raw.Due)
	if err != nil {
		return fmt.Errorf("due: %w", err)
	}
	t.Due = due

	return nil
}

// flexString decodes a JSON string, number or null into a string.
func flexString(data json.RawMessage) (string, error) {
	if len(data) == 0 || isNull(data) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("not an integer: %s", n)
	}
	return n.String(), nil
}

// parseDue accepts a plain date string or a remote due object {"date": ...}.
func parseDue(data json.RawMessage) (string, error) {
	if len(data) == 0 || isNull(data) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", err
	}
	return obj.Date, nil
}

func isNull(data json.RawMessage) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
