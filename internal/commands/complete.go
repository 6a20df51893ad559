package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/syncer"
)

func init() {
	Register(&CompleteCmd{})
}

// CompleteCmd implements the complete command.
type CompleteCmd struct{}

func (c *CompleteCmd) Name() string      { return "complete" }
func (c *CompleteCmd) Aliases() []string { return []string{"done"} }
func (c *CompleteCmd) Synopsis() string  { return "Mark a task completed by id" }
func (c *CompleteCmd) Usage() string     { return "todosync complete <id>" }
func (c *CompleteCmd) NeedsSync() bool   { return true }

func (c *CompleteCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CompleteCmd) Run(ctx context.Context, cfg *config.Config, s Syncer, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	res := s.CompleteTask(ctx, id)

	switch res.Outcome {
	case syncer.Synced:
		if !cfg.Quiet {
			output.FormatComplete(out, res)
		}
		return exitcode.Success
	case syncer.NotFound:
		output.FormatComplete(out, res)
		return exitcode.UserError
	case syncer.SaveFailed:
		output.FormatComplete(out, res)
		fmt.Fprintf(errOut, "error: %v\n", res.SaveErr)
		return exitcode.StorageError
	default:
		output.FormatComplete(out, res)
		return exitcode.PartialSync
	}
}
