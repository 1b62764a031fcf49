// Package doctor probes the external resources a catalog description
// depends on: attachment databases, SQL files, and remote references. It
// never executes catalog SQL.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/legout/duckalog/internal/config"
	"github.com/legout/duckalog/internal/fsys"
	"github.com/legout/duckalog/pkg/adapter"
)

// Status classifies the outcome of one check.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Check is the result of probing one resource.
type Check struct {
	Object string
	Kind   string
	Status Status
	Detail string
}

// Options configures a Doctor. Zero values select defaults.
type Options struct {
	// FS serves existence checks for SQL files; defaults to a local-only
	// registry.
	FS *fsys.Registry
	// Timeout bounds each connection probe; defaults to 5s.
	Timeout time.Duration
	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Doctor probes the resources referenced by a catalog description.
type Doctor struct {
	fs      *fsys.Registry
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Doctor.
func New(opts Options) *Doctor {
	d := &Doctor{
		fs:      opts.FS,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
	if d.fs == nil {
		d.fs = fsys.NewRegistry()
	}
	if d.timeout <= 0 {
		d.timeout = 5 * time.Second
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d
}

// Run probes every attachment and SQL file reference in cfg. It always runs
// all checks; the returned bool is false if any check failed.
func (d *Doctor) Run(ctx context.Context, cfg *config.Config) ([]Check, bool) {
	var checks []Check
	for _, att := range cfg.Attachments.All() {
		checks = append(checks, d.checkAttachment(ctx, cfg, att))
	}
	for _, v := range cfg.Views {
		if v.SQLFile == "" && v.SQLTemplate == "" {
			continue
		}
		checks = append(checks, d.checkSQLFile(cfg, v))
	}

	ok := true
	for _, c := range checks {
		if c.Status == StatusFailed {
			ok = false
		}
		d.logger.Debug("doctor check",
			"object", c.Object,
			"kind", c.Kind,
			"status", string(c.Status),
			"detail", c.Detail)
	}
	return checks, ok
}

func (d *Doctor) checkAttachment(ctx context.Context, cfg *config.Config, att config.Attachment) Check {
	check := Check{Object: "attachment:" + att.Alias, Kind: string(att.Kind)}

	if att.Kind == config.KindDuckDB && att.Config != "" {
		check.Status = StatusSkipped
		check.Detail = "nested catalog, built on demand"
		return check
	}

	switch att.Kind {
	case config.KindDuckDB, config.KindSQLite:
		return d.checkFileDatabase(ctx, cfg, att, check)
	case config.KindPostgres:
		return d.checkServerDatabase(ctx, att, check)
	}

	check.Status = StatusFailed
	check.Detail = fmt.Sprintf("unknown attachment kind %q", att.Kind)
	return check
}

// checkFileDatabase verifies the database file exists and, for sqlite, that
// it opens. DuckDB files are only stat'ed; opening one would take the
// writer lock other processes may hold.
func (d *Doctor) checkFileDatabase(ctx context.Context, cfg *config.Config, att config.Attachment, check Check) Check {
	if fsys.IsRemote(att.Path) {
		check.Status = StatusSkipped
		check.Detail = "remote database, not probed"
		return check
	}
	// Same resolution the emitter applies, so a green check here means the
	// generated ATTACH points at the file that was probed.
	path := cfg.AbsPath(att.Path)

	if _, err := os.Stat(path); err != nil {
		check.Status = StatusFailed
		check.Detail = fmt.Sprintf("database file: %v", err)
		return check
	}

	if att.Kind == config.KindSQLite {
		return d.ping(ctx, string(att.Kind), adapter.Config{Path: path, ReadOnly: true}, check)
	}

	check.Status = StatusOK
	return check
}

func (d *Doctor) checkServerDatabase(ctx context.Context, att config.Attachment, check Check) Check {
	return d.ping(ctx, string(att.Kind), adapter.Config{
		Host:     att.Host,
		Port:     att.Port,
		Database: att.DBName,
		User:     att.User,
		Password: att.Password,
	}, check)
}

func (d *Doctor) ping(ctx context.Context, kind string, acfg adapter.Config, check Check) Check {
	a, err := adapter.New(kind, d.logger)
	if err != nil {
		check.Status = StatusFailed
		check.Detail = err.Error()
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := a.Connect(ctx, acfg); err != nil {
		check.Status = StatusFailed
		check.Detail = err.Error()
		return check
	}
	defer func() { _ = a.Close() }()

	if err := a.Ping(ctx); err != nil {
		check.Status = StatusFailed
		check.Detail = err.Error()
		return check
	}

	check.Status = StatusOK
	return check
}

func (d *Doctor) checkSQLFile(cfg *config.Config, v config.View) Check {
	ref := v.SQLFile
	if ref == "" {
		ref = v.SQLTemplate
	}
	check := Check{Object: "view:" + v.Key(), Kind: "sql_file"}

	path := cfg.AbsPath(ref)

	exists, err := d.fs.Exists(path)
	switch {
	case err != nil:
		check.Status = StatusFailed
		check.Detail = err.Error()
	case !exists:
		check.Status = StatusFailed
		check.Detail = fmt.Sprintf("%s does not exist", ref)
	default:
		check.Status = StatusOK
	}
	return check
}
