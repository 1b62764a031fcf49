package build

import (
	"context"
	"log/slog"

	"github.com/legout/duckalog/internal/emit"
	"github.com/legout/duckalog/pkg/adapter"
)

// AdapterExecutor applies statements through a registered database adapter.
// The duckdb adapter must be registered by the caller (blank import of
// pkg/adapters/duckdb).
type AdapterExecutor struct {
	// AdapterType selects the registered adapter; defaults to "duckdb".
	AdapterType string
	Logger      *slog.Logger
}

// Execute opens the target database, runs every statement in order, and
// closes the connection. The first failing statement aborts the run.
func (e *AdapterExecutor) Execute(ctx context.Context, database string, stmts []emit.Statement) error {
	typ := e.AdapterType
	if typ == "" {
		typ = "duckdb"
	}

	a, err := adapter.New(typ, e.Logger)
	if err != nil {
		return err
	}
	if err := a.Connect(ctx, adapter.Config{Path: database}); err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	for _, stmt := range stmts {
		if err := a.Exec(ctx, stmt.SQL); err != nil {
			return &ExecError{Database: database, Object: stmt.Object, Err: err}
		}
	}
	return nil
}

var _ Executor = (*AdapterExecutor)(nil)
