// Package commands implements the duckalog subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/legout/duckalog/internal/cli/config"
)

// configKey is used to store CLI settings in context.
type configKey struct{}

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// WithConfig stores the CLI settings in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the CLI settings from the context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		MaxDepth:    0,
		Concurrency: config.DefaultConcurrency,
		Output:      config.DefaultOutput,
	}
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// catalogPath resolves the catalog file for a command: the positional
// argument wins over the configured/default location.
func catalogPath(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Catalog == "" {
		return "", fmt.Errorf("no catalog description found (looked for duckalog.yaml; use --config or pass a path)")
	}
	return cfg.Catalog, nil
}
