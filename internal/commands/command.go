// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/config"
	"todosync/internal/syncer"
)

// Syncer is the set of synchronizer operations the commands use.
type Syncer interface {
	AddTask(ctx context.Context, description string) syncer.Result
	CompleteTask(ctx context.Context, id int) syncer.Result
	ViewTasks(ctx context.Context) syncer.Result
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsSync returns true if the command works on the task list.
	// Commands like help, version, login, logout return false.
	NeedsSync() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// s is nil if NeedsSync() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, s Syncer, args []string, out, errOut io.Writer) int
}
