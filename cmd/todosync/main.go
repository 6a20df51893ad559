// Package main is the entry point for the todosync CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"todosync/internal/backend/googletasks"
	"todosync/internal/backend/todoist"
	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, newService)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newService builds the backend named by the config.
func newService(ctx context.Context, cfg *config.Config, log *zap.Logger) (service.Service, error) {
	switch cfg.Backend {
	case config.BackendGoogleTasks:
		return googletasks.New(ctx, cfg, log)
	default:
		return todoist.New(ctx, cfg, log)
	}
}
