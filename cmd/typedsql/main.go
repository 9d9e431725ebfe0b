package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shipq/typedsql/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		cli.Stdio.FatalErr(err)
	}
}
