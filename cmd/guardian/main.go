package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/guardian/internal/cmd"
	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/exitcode"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		// Coded errors were already reported with their suggestions.
		var gErr *gerrors.GuardianError
		if !errors.As(err, &gErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
