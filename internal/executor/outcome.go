// Package executor provides the bounded-concurrency staged execution engine
// behind bulk provisioning runs.
//
// It implements the disciplined worker-pool pattern where goroutine fan-out
// stays contained in this package and callers see only items in, stage
// results out. A stage runs one task over many items with a hard cap on
// simultaneous executions; a pipeline chains stages so that each stage
// consumes only the items that succeeded in the previous one.
package executor

import (
	"errors"
	"fmt"
	"strings"
)

// Item is an opaque resource identifier (e.g. a project id) subject to a
// stage's task. Items are generated once per run and never mutated.
type Item string

// TaskOutcome is the recorded result of running a task for one item.
type TaskOutcome struct {
	Item   Item
	Output string
	Err    error
}

// Success reports whether the task produced a usable result.
func (o TaskOutcome) Success() bool { return o.Err == nil }

// FailureClass categorizes a task failure for retry decisions and reporting.
type FailureClass int

const (
	FailureTransient FailureClass = iota
	FailurePermanent
	FailureExtraction
)

func (c FailureClass) String() string {
	switch c {
	case FailurePermanent:
		return "permanent"
	case FailureExtraction:
		return "extraction"
	default:
		return "transient"
	}
}

// permanentSignatures are error-text fragments that identify failures no
// retry can fix (authorization and authentication problems).
var permanentSignatures = []string{
	"permission denied",
	"permission_denied",
	"caller does not have permission",
	"authentication failed",
	"unauthenticated",
}

// PermanentError marks an error as permanent (non-retryable).
// Operations that encounter permanent errors are not retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err to mark it as permanent regardless of its text.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ExtractionError reports a remote call that succeeded but whose response
// payload did not yield the expected field. The remote operation already
// completed, so extraction failures are never retried.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("response missing %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("response missing %q", e.Field)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsPermanent reports whether err should abort retrying immediately, either
// because it carries an explicit permanent/extraction marker or because its
// text matches a known permanent-failure signature.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return true
	}
	var extr *ExtractionError
	if errors.As(err, &extr) {
		return true
	}
	text := strings.ToLower(err.Error())
	for _, sig := range permanentSignatures {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}

// Classify maps a task error to its failure class.
func Classify(err error) FailureClass {
	var extr *ExtractionError
	if errors.As(err, &extr) {
		return FailureExtraction
	}
	if IsPermanent(err) {
		return FailurePermanent
	}
	return FailureTransient
}
