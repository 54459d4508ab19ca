// cmd/casecrawl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/casecrawl/internal/cli"
)

func main() {
	// SIGINT/SIGTERM cancel the crawl; the orchestrator still writes a final snapshot
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
