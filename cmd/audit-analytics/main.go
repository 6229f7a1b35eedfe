package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"audit-analytics/cmd/audit-analytics/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
