// Package errors defines the error taxonomy shared by the OCR front end.
//
// Every failure that crosses a component boundary is one of three kinds:
//
//   - INPUT: missing or nonexistent path, undecodable image, bad arguments
//   - ENGINE: initialization, detection or recognition failure, and
//     region/crop count mismatches
//   - OUTPUT: the final report could not be serialized or written
//
// Per-region recognition failures are deliberately not represented here: the
// aggregator logs them and drops the region.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	KindInput  Kind = "INPUT"
	KindEngine Kind = "ENGINE"
	KindOutput Kind = "OUTPUT"
)

var (
	// ErrNoPath is returned when single-shot mode is started without an image path.
	ErrNoPath = errors.New("image path is required")

	// ErrNotFound is returned when the image path does not exist.
	ErrNotFound = errors.New("file does not exist")

	// ErrNotInitialized is returned by a gateway used before Initialize.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrCountMismatch marks detection results whose rectangles and crops
	// cannot be paired by index.
	ErrCountMismatch = errors.New("inconsistent detection results")
)

// Error is a classified failure with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewInputError reports a problem with what the operator supplied.
func NewInputError(msg string, cause error) *Error {
	return &Error{Kind: KindInput, Message: msg, Cause: cause}
}

// NewEngineError reports a failure of the engine gateway.
func NewEngineError(msg string, cause error) *Error {
	return &Error{Kind: KindEngine, Message: msg, Cause: cause}
}

// NewOutputError reports a failure to render or write a report.
func NewOutputError(msg string, cause error) *Error {
	return &Error{Kind: KindOutput, Message: msg, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Wrap classifies err as kind and prefixes msg. An err that already carries
// a Kind keeps it, so nested engine errors are not reported twice.
func Wrap(kind Kind, msg string, err error) error {
	if KindOf(err) != "" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return &Error{Kind: kind, Message: msg, Cause: err}
}
