package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/roost/internal/cli"
	"github.com/arthur-debert/roost/pkg/logging"
)

func main() {
	os.Exit(run())
}

// run executes the command line and returns the exit status. Interrupts
// cancel the context; the session is cleaned up on every path.
func run() (status int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logging.Close()

	app := cli.NewApp()
	defer func() {
		if err := app.Cleanup(); err != nil {
			app.Fault(err)
			status = 1
		}
	}()

	rootCmd := app.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		app.Fault(err)
		return 1
	}
	if ctx.Err() != nil {
		app.Fault(ctx.Err())
		return 1
	}
	return 0
}
