// Package cli parses the command line and wires commands to the synchronizer.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/logging"
	"todosync/internal/service"
	"todosync/internal/store"
	"todosync/internal/syncer"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Service, error)

// LoggerFactory builds the logger for one invocation.
// The returned function flushes it.
type LoggerFactory func(cfg *config.Config) (*zap.Logger, func(), error)

// DefaultLogger writes to the configured log file, and to stderr with --debug.
func DefaultLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	return logging.New(logging.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Path:     cfg.LogPath(),
		Debug:    cfg.Debug,
	})
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	logger   LoggerFactory
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		logger:   DefaultLogger,
	}
}

// SetLoggerFactory replaces the logger factory.
func (d *Dispatcher) SetLoggerFactory(f LoggerFactory) {
	d.logger = f
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> refresh and show the project
	if len(args) == 0 {
		return d.dispatch(ctx, "view", nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var stateFile string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&stateFile, "state", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		errStr := err.Error()

		if strings.HasPrefix(errStr, "flag needs an argument:") {
			flagName := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagName)
			return exitcode.UserError
		}

		if strings.HasPrefix(errStr, "flag provided but not defined:") {
			flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
			return exitcode.UserError
		}

		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return exitcode.UserError
	}

	// A leading dash after parsing is a flag the parser did not consume
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug
	if stateFile != "" {
		cfg.StateFile = stateFile
	}

	if !cmd.NeedsSync() {
		return cmd.Run(ctx, cfg, nil, positionalArgs, out, errOut)
	}

	log, flush, err := d.logger(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "warning: logging disabled: %v\n", err)
		log, flush = zap.NewNop(), func() {}
	}
	defer flush()
	log = log.With(zap.String("command", cmd.Name()))

	// Local changes still commit when the backend cannot be built.
	var svc service.Service
	if d.factory != nil {
		svc, err = d.factory(ctx, cfg, log)
	} else {
		err = fmt.Errorf("no backend configured")
	}
	if err != nil {
		log.Warn("remote unavailable", zap.String("backend", cfg.Backend), zap.Error(err))
		fmt.Fprintf(errOut, "warning: remote unavailable: %v\n", err)
		svc = service.Unavailable(err)
	}

	st := store.New(cfg.StatePath(), log)
	s := syncer.New(st, svc, cfg.ProjectID, log)

	return cmd.Run(ctx, cfg, s, positionalArgs, out, errOut)
}
