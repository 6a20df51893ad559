// Package output renders synchronizer results as user-facing text.
package output

import (
	"fmt"
	"io"
	"strings"

	"todosync/internal/store"
	"todosync/internal/syncer"
)

const (
	// ViewHeader introduces the project task listing.
	ViewHeader = "Project tasks:"

	// NoTasksMessage is printed when the project is empty or could not be read.
	NoTasksMessage = "No tasks found or failed to retrieve tasks."
)

// FormatAdd writes the message for an add result.
func FormatAdd(w io.Writer, res syncer.Result) {
	desc := normalizeTitle(res.Task.Description)
	switch res.Outcome {
	case syncer.Synced:
		fmt.Fprintf(w, "Task %d added locally and remotely: %s\n", res.Task.ID, desc)
	case syncer.SaveFailed:
		fmt.Fprintf(w, "Task could not be saved locally: %s\n", desc)
	default:
		fmt.Fprintf(w, "Task %d saved locally but failed to sync remotely: %s\n", res.Task.ID, desc)
	}
}

// FormatComplete writes the message for a complete result.
func FormatComplete(w io.Writer, res syncer.Result) {
	switch res.Outcome {
	case syncer.Synced:
		fmt.Fprintf(w, "Task %d marked as completed locally and remotely.\n", res.Task.ID)
	case syncer.NotFound:
		fmt.Fprintf(w, "Task %d not found.\n", res.Task.ID)
	case syncer.SaveFailed:
		fmt.Fprintf(w, "Task %d could not be saved locally.\n", res.Task.ID)
	default:
		fmt.Fprintf(w, "Task %d marked as completed locally but failed to update remotely.\n", res.Task.ID)
	}
}

// FormatView writes the task listing for a view result.
func FormatView(w io.Writer, res syncer.Result) {
	if res.Outcome != syncer.Synced || len(res.Tasks) == 0 {
		fmt.Fprintln(w, NoTasksMessage)
		return
	}
	fmt.Fprintln(w, ViewHeader)
	for _, task := range res.Tasks {
		FormatTask(w, task)
	}
}

// FormatTask formats one task line.
// Format: "- [{ID}] {DESCRIPTION}" plus " (Due: {DATE})" when a due date is set.
func FormatTask(w io.Writer, task store.Task) {
	line := fmt.Sprintf("- [%d] %s", task.ID, normalizeTitle(task.Description))
	if task.Due != "" {
		line += fmt.Sprintf(" (Due: %s)", task.Due)
	}
	fmt.Fprintln(w, line)
}

// normalizeTitle normalizes a task description for display.
// - Empty or whitespace-only descriptions become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
