// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, task not found).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates the remote project could not be read.
	BackendError = 3

	// PartialSync indicates the local change committed but the remote sync failed.
	PartialSync = 4

	// StorageError indicates the local task list could not be written.
	StorageError = 5
)
