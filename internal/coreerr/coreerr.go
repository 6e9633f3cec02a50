// Package coreerr defines the error-kind taxonomy shared by every core
// component (normalize, schemafit, rowvalidate, catalog, registry,
// registrations, ingest, dedup, review, indicators).
//
// Components never panic or throw on expected conditions; they wrap the
// relevant Kind in an *Error so a caller (the external transport layer) can
// dispatch on it with errors.As instead of string matching.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind tags an error the way spec.md §7 enumerates them: input errors
// (caller's fault), row-level validation, state errors (retry/re-read), and
// invariant violations (bug, must not happen).
type Kind string

const (
	// Input errors — synchronous, caller's fault.
	KindParseFailed       Kind = "parse.failed"
	KindParseTooLarge     Kind = "parse.too_large"
	KindMappingIncomplete Kind = "mapping.incomplete"
	KindActivityUnknown   Kind = "activity.unknown"

	// Row-level validation — recorded, never aborts the batch.
	KindPersistFailed Kind = "persist.failed"

	// State errors — caller retries or re-reads.
	KindItemNotPending     Kind = "item.not_pending"
	KindMergeConflict      Kind = "merge.conflict"
	KindActivityBusy       Kind = "activity.busy"
	KindCanonicalNotInPair Kind = "canonical.not_in_pair"
	KindVersionConflict    Kind = "version.conflict"

	// Invariant violations — bug, must not happen; roll back the containing
	// operation only, never the whole process.
	KindInvariantViolation Kind = "invariant.violation"
)

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, coreerr.KindX) style matching work is not supported
// directly (Kind is not an error); use KindOf instead.

// New creates an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *coreerr.Error, returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is a *coreerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
