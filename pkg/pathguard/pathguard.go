// Package pathguard constrains filesystem paths to a set of allowed root
// directories. Every locally-resolved path in a catalog configuration must
// pass through Resolve before it is read, so that malformed or hostile
// configuration cannot reach outside the project.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SecurityError is returned when a candidate path resolves outside every
// allowed root. It carries the original input and the first root that was
// tried, never a silently corrected path.
type SecurityError struct {
	Path string
	Root string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("path %q escapes allowed root %q", e.Path, e.Root)
}

// Resolve canonicalizes candidate and checks it against the allowed roots.
// Relative candidates are resolved against the first root. The result is the
// canonical absolute path when it is equal to, or a descendant of, at least
// one root. Symlinks are followed before the containment check, so a link
// pointing outside a root is rejected even though its own path lies inside.
func Resolve(candidate string, allowedRoots []string) (string, error) {
	if len(allowedRoots) == 0 {
		return "", fmt.Errorf("pathguard: no allowed roots configured")
	}

	raw := candidate
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(allowedRoots[0], candidate)
	}

	resolved, err := canonicalize(candidate)
	if err != nil {
		return "", fmt.Errorf("pathguard: cannot canonicalize %q: %w", raw, err)
	}

	for _, root := range allowedRoots {
		canonRoot, err := canonicalize(root)
		if err != nil {
			continue
		}
		if within(canonRoot, resolved) {
			return resolved, nil
		}
	}

	return "", &SecurityError{Path: raw, Root: allowedRoots[0]}
}

// canonicalize makes path absolute and follows symlinks. The path itself may
// not exist yet (output database files, for instance), so symlink evaluation
// walks up to the nearest existing ancestor and rejoins the remainder.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}

	// Walk up until an existing ancestor is found.
	dir := abs
	var tail []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Hit the filesystem root without finding anything.
			return abs, nil
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
		if _, err := os.Lstat(dir); err == nil {
			break
		}
	}

	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return abs, nil
	}
	return filepath.Join(append([]string{real}, tail...)...), nil
}

// within reports whether path equals root or is a descendant of it. The check
// is segment-wise on the canonical forms, never a raw string prefix, so mixed
// separators and ".." tricks cannot bypass it.
func within(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if runtime.GOOS == "windows" {
		root = strings.ToLower(root)
		path = strings.ToLower(path)
	}
	if root == path {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
