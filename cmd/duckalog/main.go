// Package main provides the duckalog CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/legout/duckalog/internal/cli"

	// Register database adapters.
	_ "github.com/legout/duckalog/pkg/adapters/duckdb"
	_ "github.com/legout/duckalog/pkg/adapters/postgres"
	_ "github.com/legout/duckalog/pkg/adapters/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
