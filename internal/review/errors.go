package review

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so the command layer can decide
// between hard aborts and graceful degradation without inspecting raw
// subprocess or filesystem errors.
type Kind string

const (
	// KindInput covers bad invocations: missing or non-markdown source,
	// zero-section documents, conflicting generation flags.
	KindInput Kind = "input"
	// KindDependency covers a missing optional runtime; the review
	// degrades to visual-only rather than failing.
	KindDependency Kind = "dependency"
	// KindSubprocess covers engine and worker failures.
	KindSubprocess Kind = "subprocess"
	// KindPersistence covers failed manifest writes; a failed save means
	// no change occurred, never a partial one.
	KindPersistence Kind = "persistence"
	// KindUnknown is everything that did not declare a classification.
	KindUnknown Kind = "unknown"
)

// Error wraps a failure with its classification and the operation that
// produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}
