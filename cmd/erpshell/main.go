// Command erpshell is a terminal client for the ERP backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desolution/erpshell/internal/cli"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	stop()
	if err != nil {
		os.Exit(1)
	}
}
