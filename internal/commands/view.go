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
	Register(&ViewCmd{})
}

// ViewCmd implements the view command.
// Handles both `todosync` (no args) and `todosync view`.
// It refreshes the local list from the remote project before printing.
type ViewCmd struct{}

func (c *ViewCmd) Name() string      { return "view" }
func (c *ViewCmd) Aliases() []string { return []string{"list"} }
func (c *ViewCmd) Synopsis() string  { return "Fetch the remote project and replace the local list" }
func (c *ViewCmd) Usage() string     { return "todosync view" }
func (c *ViewCmd) NeedsSync() bool   { return true }

func (c *ViewCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ViewCmd) Run(ctx context.Context, cfg *config.Config, s Syncer, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	res := s.ViewTasks(ctx)
	output.FormatView(out, res)

	if res.Outcome == syncer.FetchFailed {
		return exitcode.BackendError
	}
	if res.SaveErr != nil {
		fmt.Fprintf(errOut, "warning: task list not saved: %v\n", res.SaveErr)
		return exitcode.StorageError
	}
	return exitcode.Success
}
