package grading

import (
	"errors"
	"fmt"
)

// ErrNoSuggestion indicates an answer carries no external suggested score.
// It is informational, not a failure.
var ErrNoSuggestion = errors.New("no suggested score available")

// ErrSessionClosed indicates an operation was attempted on a closed session.
var ErrSessionClosed = errors.New("grading session is closed")

// ErrAnswerNotFound indicates the referenced answer is not part of the session.
var ErrAnswerNotFound = errors.New("answer not found in session")

// ErrEmptySelection indicates a batch action was requested without any
// explicitly selected submissions.
var ErrEmptySelection = errors.New("batch action requires an explicit selection")

// ErrConfirmationUnknown indicates the batch confirmation token does not match
// a prepared batch.
var ErrConfirmationUnknown = errors.New("unknown or expired batch confirmation")

// FetchError wraps a failed list or detail load. The previous in-memory state
// is preserved, so the caller may simply retry.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports locally rejected input. It never reaches the gateway.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RubricBoundsError reports an allocation exceeding a criterion's cap.
type RubricBoundsError struct {
	Criterion string
	Max       int
	Got       int
}

func (e *RubricBoundsError) Error() string {
	return fmt.Sprintf("rubric criterion %q allows at most %d, got %d", e.Criterion, e.Max, e.Got)
}

// SaveError wraps a failed persistence attempt. The session keeps every
// in-memory edit and stays dirty so the operator's work is never lost.
type SaveError struct {
	SubmissionID uint
	Err          error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save submission %d: %v", e.SubmissionID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
