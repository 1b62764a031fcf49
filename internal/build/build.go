// Package build orchestrates catalog builds. It walks the tree of catalog
// descriptions reachable through nested attachment references, loads and
// validates each one, and executes the generated SQL bottom-up so that every
// embedded database exists before the catalog that attaches it.
package build

import (
	"fmt"
	"strings"
)

// CycleError reports a cycle between catalog descriptions that reference each
// other through nested attachments. Chain lists the config paths along the
// cycle, ending with the repeated path.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("nested catalog cycle: %s", strings.Join(e.Chain, " -> "))
}

// DepthError reports a nesting chain exceeding the configured limit.
type DepthError struct {
	Limit int
	Chain []string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("nested catalog chain exceeds depth limit %d: %s", e.Limit, strings.Join(e.Chain, " -> "))
}

// NestedConfigError reports a nested attachment whose referenced catalog
// description cannot serve as a build target.
type NestedConfigError struct {
	Parent string
	Alias  string
	Path   string
	Reason string
}

func (e *NestedConfigError) Error() string {
	return fmt.Sprintf("attachment %q in %s: nested config %s: %s", e.Alias, e.Parent, e.Path, e.Reason)
}

// ExecError reports a failed statement during catalog execution.
type ExecError struct {
	Database string
	Object   string
	Err      error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing %s against %s: %v", e.Object, e.Database, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
