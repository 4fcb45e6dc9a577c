package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ochairo/tincture/internal/domain/entities"
)

// Build information, set with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"

	// Revision released when neither the flag, TINCTURE_REVISION nor the
	// manifest pins one. -ldflags "-X main.defaultRevision=..." overrides it.
	defaultRevision = entities.DefaultRevision
)

func main() {
	// The only cancellation source for fetches, builds and strips
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, c := newRootCmd(buildInfo{
		Version:         version,
		Commit:          commit,
		DefaultRevision: defaultRevision,
	}, stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var stageErr *entities.StageError
		if errors.As(err, &stageErr) {
			c.printer().Failure(string(stageErr.Stage), stageErr.Err)
		} else {
			c.printer().Failure("", err)
		}
		return 1
	}
	return 0
}
