package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meigma/unitypackage/internal/cli"
)

// version is injected via ldflags at build time.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context) int {
	c := cli.New(os.Stderr)
	root := c.RootCommand(version)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return 130 // Standard shell convention for SIGINT
	}
	c.Logger.Error(err)
	if cli.ExitCode(err) == cli.ExitBadArguments {
		fmt.Fprintln(os.Stderr, root.UsageString())
	}
	return cli.ExitCode(err)
}
