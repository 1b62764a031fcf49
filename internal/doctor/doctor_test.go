package doctor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/internal/testutil"
	"github.com/legout/duckalog/pkg/adapter"
)

type stubAdapter struct {
	connectErr error
	pingErr    error
}

func (s *stubAdapter) Connect(ctx context.Context, cfg adapter.Config) error { return s.connectErr }
func (s *stubAdapter) Close() error                                          { return nil }
func (s *stubAdapter) Exec(ctx context.Context, sql string) error            { return nil }
func (s *stubAdapter) Ping(ctx context.Context) error                        { return s.pingErr }

func registerStub(t *testing.T, kind string, a *stubAdapter) {
	t.Helper()
	adapter.Register(kind, func(logger *slog.Logger) adapter.Adapter { return a })
}

func newTestDoctor(t *testing.T) *Doctor {
	t.Helper()
	return New(Options{Logger: testutil.NewTestLogger(t)})
}

func checkFor(t *testing.T, checks []Check, object string) Check {
	t.Helper()
	for _, c := range checks {
		if c.Object == object {
			return c
		}
	}
	t.Fatalf("no check for %s in %v", object, checks)
	return Check{}
}

func TestRun_FileAttachments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ref.duckdb"), []byte("x"), 0o644))

	cfg := &config.Config{
		Dir: dir,
		Attachments: config.AttachmentGroups{
			DuckDB: []config.Attachment{
				{Alias: "ref", Path: "ref.duckdb"},
				{Alias: "gone", Path: "missing.duckdb"},
			},
		},
	}

	checks, ok := newTestDoctor(t).Run(context.Background(), cfg)
	assert.False(t, ok)

	assert.Equal(t, StatusOK, checkFor(t, checks, "attachment:ref").Status)
	gone := checkFor(t, checks, "attachment:gone")
	assert.Equal(t, StatusFailed, gone.Status)
	assert.Contains(t, gone.Detail, "missing.duckdb")
}

func TestRun_NestedAttachmentSkipped(t *testing.T) {
	cfg := &config.Config{
		Attachments: config.AttachmentGroups{
			DuckDB: []config.Attachment{
				{Alias: "nested", Config: "child.yaml"},
			},
		},
	}

	checks, ok := newTestDoctor(t).Run(context.Background(), cfg)
	assert.True(t, ok)
	assert.Equal(t, StatusSkipped, checkFor(t, checks, "attachment:nested").Status)
}

func TestRun_SQLitePing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lite.db"), []byte("x"), 0o644))

	stub := &stubAdapter{}
	registerStub(t, "sqlite", stub)

	cfg := &config.Config{
		Dir: dir,
		Attachments: config.AttachmentGroups{
			SQLite: []config.Attachment{{Alias: "lite", Path: "lite.db"}},
		},
	}

	checks, ok := newTestDoctor(t).Run(context.Background(), cfg)
	assert.True(t, ok)
	assert.Equal(t, StatusOK, checkFor(t, checks, "attachment:lite").Status)

	stub.pingErr = errors.New("locked")
	checks, ok = newTestDoctor(t).Run(context.Background(), cfg)
	assert.False(t, ok)
	assert.Contains(t, checkFor(t, checks, "attachment:lite").Detail, "locked")
}

func TestRun_PostgresPing(t *testing.T) {
	stub := &stubAdapter{}
	registerStub(t, "postgres", stub)

	cfg := &config.Config{
		Attachments: config.AttachmentGroups{
			Postgres: []config.Attachment{
				{Alias: "events", Host: "db.internal", DBName: "app"},
			},
		},
	}

	checks, ok := newTestDoctor(t).Run(context.Background(), cfg)
	assert.True(t, ok)
	assert.Equal(t, StatusOK, checkFor(t, checks, "attachment:events").Status)

	stub.connectErr = errors.New("connection refused")
	checks, ok = newTestDoctor(t).Run(context.Background(), cfg)
	assert.False(t, ok)
	assert.Contains(t, checkFor(t, checks, "attachment:events").Detail, "connection refused")
}

func TestRun_SQLFileChecks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.sql"), []byte("SELECT 1"), 0o644))

	cfg := &config.Config{
		Dir: dir,
		Views: []config.View{
			{Name: "users", Schema: "staging", SQLFile: "users.sql"},
			{Name: "orders", Schema: "staging", SQLFile: "orders.sql"},
			{Name: "inline", Schema: "staging", SQL: "SELECT 1"},
		},
	}

	checks, ok := newTestDoctor(t).Run(context.Background(), cfg)
	assert.False(t, ok)

	assert.Equal(t, StatusOK, checkFor(t, checks, "view:staging.users").Status)
	orders := checkFor(t, checks, "view:staging.orders")
	assert.Equal(t, StatusFailed, orders.Status)
	assert.Contains(t, orders.Detail, "orders.sql")
	assert.Len(t, checks, 2)
}
