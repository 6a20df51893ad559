package service

// Task represents a task as seen by the remote backend.
type Task struct {
	ID      string
	Content string
	Due     string // date only, e.g. "2024-05-01"; empty if none
}
