package config

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed catalog document.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InterpolationError reports a ${env:...} placeholder whose variable is not
// set. Placeholders are never silently replaced with an empty string.
type InterpolationError struct {
	File string
	Var  string
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("%s: environment variable %q is not set", e.File, e.Var)
}

// ImportErrorKind classifies import failures.
type ImportErrorKind int

const (
	// ImportNotFound means the import target does not exist.
	ImportNotFound ImportErrorKind = iota
	// ImportSyntax means the import target failed to parse.
	ImportSyntax
	// ImportCycle means the import chain loops back on itself.
	ImportCycle
)

func (k ImportErrorKind) String() string {
	switch k {
	case ImportNotFound:
		return "not found"
	case ImportSyntax:
		return "syntax error"
	case ImportCycle:
		return "cycle detected"
	}
	return "unknown"
}

// ImportError reports a failure while resolving or loading an import.
type ImportError struct {
	Importer string
	Target   string
	Kind     ImportErrorKind
	Err      error
}

func (e *ImportError) Error() string {
	msg := fmt.Sprintf("import %q in %s: %s", e.Target, e.Importer, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImportError) Unwrap() error { return e.Err }

// CycleError reports a circular import chain. Chain holds every file on the
// cycle in traversal order, ending with the file that closed the loop.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "circular import: " + strings.Join(e.Chain, " -> ")
}

// DepthError reports an import chain deeper than the configured limit.
type DepthError struct {
	Limit int
	Chain []string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("import chain exceeds maximum depth %d: %s", e.Limit, strings.Join(e.Chain, " -> "))
}

// DuplicateNameError reports an entity name defined more than once across the
// merged result. Files lists every contributing source.
type DuplicateNameError struct {
	Kind  string
	Name  string
	Files []string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s %q defined in: %s", e.Kind, e.Name, strings.Join(e.Files, ", "))
}

// ValidationError reports a single entity invariant violation.
type ValidationError struct {
	Entity string
	File   string
	Msg    string
}

func (e *ValidationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s (%s): %s", e.Entity, e.File, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Entity, e.Msg)
}

// ValidationErrors aggregates every invariant violation found in one
// validation pass, so callers see all problems at once instead of fixing
// them one build at a time.
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *ValidationErrors) Unwrap() []error { return e.Errors }
