// Package fsys defines the filesystem capability used by the catalog
// pipeline. Local paths are served by the OS filesystem; scheme-qualified
// paths (s3://, http://, ...) are delegated to whatever capability the caller
// registered for that scheme. The pipeline itself never talks to remote
// storage directly.
package fsys

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// FS is the capability a filesystem backend must expose.
type FS interface {
	// Open returns a reader for the file at path.
	Open(path string) (io.ReadCloser, error)
	// Exists reports whether path exists.
	Exists(path string) (bool, error)
}

// Scheme extracts the URI scheme from path, or "" for plain local paths.
// Single-letter "schemes" are treated as Windows drive letters, not URIs.
func Scheme(path string) string {
	i := strings.Index(path, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(path[:i])
}

// IsRemote reports whether path is scheme-qualified.
func IsRemote(path string) bool {
	return Scheme(path) != ""
}

// Local serves plain OS filesystem paths.
type Local struct{}

func (Local) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (Local) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Registry routes paths to filesystem backends by scheme. The zero value is
// not usable; construct with NewRegistry.
type Registry struct {
	local   FS
	schemes map[string]FS
}

// NewRegistry returns a registry backed by the local OS filesystem with no
// remote schemes registered.
func NewRegistry() *Registry {
	return &Registry{
		local:   Local{},
		schemes: make(map[string]FS),
	}
}

// Register installs a backend for a URI scheme (e.g. "s3", "https").
func (r *Registry) Register(scheme string, fs FS) {
	r.schemes[strings.ToLower(scheme)] = fs
}

// For returns the backend responsible for path.
func (r *Registry) For(path string) (FS, error) {
	scheme := Scheme(path)
	if scheme == "" {
		return r.local, nil
	}
	fs, ok := r.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("no filesystem registered for scheme %q (path %s)", scheme, path)
	}
	return fs, nil
}

// ReadFile reads the full contents of path via the responsible backend.
func (r *Registry) ReadFile(path string) ([]byte, error) {
	fs, err := r.For(path)
	if err != nil {
		return nil, err
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// Exists reports whether path exists on the responsible backend.
func (r *Registry) Exists(path string) (bool, error) {
	fs, err := r.For(path)
	if err != nil {
		return false, err
	}
	return fs.Exists(path)
}
