// Package errors defines the clustering engine's error taxonomy (spec §7):
// input violations the caller must fix, internal invariant violations that
// indicate an engine bug, and cooperative cancellation.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// InvalidInput is returned when the caller's input violates the contract
// of spec §6: a non-finite coordinate, a non-positive weight, or a
// duplicate center. Callers should check for it with errors.Is.
var InvalidInput = fmt.Errorf("glyphcluster: invalid input")

// Cancelled marks a Cluster run that returned early because its context
// was cancelled. The returned tree is partial but structurally valid.
var Cancelled = fmt.Errorf("glyphcluster: cancelled")

// InvalidInputf wraps InvalidInput with a formatted detail message.
func InvalidInputf(format string, args ...interface{}) error {
	return pkgerrors.Wrapf(InvalidInput, format, args...)
}

// InternalInvariant panics with a stack trace attached via pkg/errors: an
// invariant violation (e.g. a dead glyph found alive in a cell) indicates
// a bug in the engine itself, not a caller mistake, so it aborts rather
// than returning an error value.
func InternalInvariant(format string, args ...interface{}) {
	panic(pkgerrors.Errorf("glyphcluster: internal invariant violated: "+format, args...))
}
