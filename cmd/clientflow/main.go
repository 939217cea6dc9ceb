package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/reoring/clientflow/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(cli.HandleError(cmd.ErrOrStderr(), err))
}
