package search

import (
	"fmt"

	"github.com/pkg/errors"
)

// traceError is satisfied by errors that know how to render themselves
// into the trace log at a different (usually terser) level of detail
// than Error() - the same split the teacher's noVersionError/
// disjointConstraintFailure keep between Error() and traceString().
type traceError interface {
	traceString() string
}

// ErrEmptySearcher is returned by SelectState/SelectAction when the
// precondition "the searcher is non-empty" does not hold. It is a
// programming-bug signal: the Coordinator is expected to check Empty()
// itself and never call Select* on an empty sub-searcher.
var ErrEmptySearcher = errors.New("search: SelectState/SelectAction called on an empty searcher")

// ErrUnknownState is returned when a ForwardResult names a current
// state that the sub-searcher for its isolation kind does not hold - the
// "interpreter misclassification" fatal error from the error-handling
// design.
var ErrUnknownState = errors.New("search: interpreter reported a state unknown to any sub-searcher")

// ErrAlreadyClosed is returned by RemoveProofObligation when the handle
// names a PO that was already closed; it mirrors the teacher's
// tolerance of redundant breakLock calls rather than the fatal
// precondition-violation path, since a duplicate close is expected to
// happen under concurrent discovery of the same refutation.
var ErrAlreadyClosed = errors.New("search: proof obligation already closed")

// MissingTargetError is the recoverable "transition-history query
// returned nothing for a looping state" condition: it is never returned
// to the Coordinator's caller, only used internally to decide to
// pause-and-retry, but it is a typed value so trace output can name the
// reason via traceString() rather than duplicating the message inline.
type MissingTargetError struct {
	StateID string
}

func (e *MissingTargetError) Error() string {
	return fmt.Sprintf("search: no transition-history target for looping state %s", e.StateID)
}

func (e *MissingTargetError) traceString() string {
	return fmt.Sprintf("%s stuck, no transition-history target", e.StateID)
}
