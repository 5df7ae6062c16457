// Package main provides the entry point for the srcindex CLI tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/Sumatoshi-tech/srcindex/cmd/srcindex/commands"
	"github.com/Sumatoshi-tech/srcindex/pkg/version"
)

// Exit statuses.
const (
	exitError = 1
	exitPanic = 2
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			code = reportPanic(slog.Default(), r, debug.Stack())
		}
	}()

	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := commands.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitError
	}

	return 0
}

// reportPanic logs a recovered panic with its stack through logger.
func reportPanic(logger *slog.Logger, recovered any, stack []byte) int {
	logger.Error(fmt.Sprintf("Unhandled exception: %v", recovered), "stack", string(stack))

	return exitPanic
}
