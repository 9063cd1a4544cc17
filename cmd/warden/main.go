// File: cmd/warden/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/codewarden/warden-cli/cmd"
	"github.com/codewarden/warden-cli/internal/observability"
)

func main() {
	// A signal-aware context lets Ctrl+C unwind a long audit or a watch
	// loop cleanly instead of killing the process mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	default:
		os.Exit(1)
	}
}
