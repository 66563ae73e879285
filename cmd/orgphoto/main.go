package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdejongh/orgphoto/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	// The summary already reported the outcome
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code()
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
