package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todosync help" }
func (c *HelpCmd) NeedsSync() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, s Syncer, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, "Usage:\n  todosync <command> [common flags] [args]\n  todosync                 Same as 'todosync view'\n\nCommands:\n")
	for _, cmd := range DefaultRegistry.All() {
		line := fmt.Sprintf("  %-10s %s", cmd.Name(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			line += fmt.Sprintf(" (alias: %s)", strings.Join(aliases, ", "))
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `
Common flags:
  --config <dir>   Override config directory
  --state <file>   Override the task list file
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  TODOSYNC_BACKEND      todoist (default) or googletasks
  TODOSYNC_API_TOKEN    Todoist API token
  TODOSYNC_PROJECT_ID   Remote project (Google: task list id)
  TODOSYNC_API_URL      Todoist tasks endpoint
  TODOSYNC_STATE_FILE   Task list file (default <config>/todo_list.json)
  TODOSYNC_LOG_DIR      Log directory (default <config>/logs)
  TODOSYNC_TIMEOUT      Remote call timeout (default 10s)
`
