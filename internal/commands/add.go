package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/syncer"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Add a task locally and to the remote project" }
func (c *AddCmd) Usage() string     { return "todosync add <description...>" }
func (c *AddCmd) NeedsSync() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, s Syncer, args []string, out, errOut io.Writer) int {
	// Join args to form the description
	description := strings.Join(args, " ")
	if strings.TrimSpace(description) == "" {
		fmt.Fprintln(errOut, "error: task description required")
		return exitcode.UserError
	}

	res := s.AddTask(ctx, description)

	if res.Outcome == syncer.SaveFailed {
		output.FormatAdd(out, res)
		fmt.Fprintf(errOut, "error: %v\n", res.SaveErr)
		return exitcode.StorageError
	}
	if res.Outcome != syncer.Synced {
		output.FormatAdd(out, res)
		return exitcode.PartialSync
	}
	if !cfg.Quiet {
		output.FormatAdd(out, res)
	}
	return exitcode.Success
}
