// Package adapter defines the database adapter contract used to execute
// generated catalog SQL and to probe attached databases.
//
// Concrete adapter implementations live in pkg/adapters/ subdirectories and
// register themselves with this package's registry in their init functions.
package adapter

import "context"

// Config holds connection parameters for an adapter. File-backed engines
// (duckdb, sqlite) use Path; server engines (postgres) use the network fields.
type Config struct {
	// Path is the database file path. ":memory:" opens an in-memory database
	// for engines that support it.
	Path string

	Host     string
	Port     int
	Database string
	User     string
	Password string

	ReadOnly bool
}

// Adapter is implemented by every database backend.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a single SQL statement that does not return rows.
	Exec(ctx context.Context, sql string) error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}
