// main.go - Entry point for the crypto-signal tool server.
//
// Usage: crypto-signal [serve|tools|version] [--flags]
//
// Exit codes:
//
//	0 = clean shutdown
//	1 = startup or transport error
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags.
var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "crypto-signal:", err)
		stop()
		os.Exit(1)
	}
}
