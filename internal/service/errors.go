// Package service implements the core of the portal: the event
// catalog, the registration ledger, the attendance certifier and
// the audit trail.  Services consume small store interfaces so the
// business rules can be exercised with in-memory fakes.
package service

import "errors"

// Kind is the machine-checkable classification of a service error.
// Every expected, recoverable outcome carries one of these kinds so
// callers can branch without string matching.
type Kind string

const (
	KindValidation    Kind = "validation"     // malformed, missing or contradictory input
	KindAuthorization Kind = "authorization"  // actor lacks the required role or ownership
	KindConflict      Kind = "conflict"       // duplicate registration
	KindCapacity      Kind = "capacity"       // event is full
	KindSchedule      Kind = "schedule"       // event already started or ended
	KindNotFound      Kind = "not_found"      // missing entity id
	KindInvalidCode   Kind = "invalid_code"   // wrong or missing confirmation code
	KindNotAvailable  Kind = "not_available"  // certificate requested before issuance
	KindInternal      Kind = "internal"       // unexpected failure, details logged server-side
)

// Error is a classified service error.  Field is set for
// validation failures that concern a specific input field.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// KindOf extracts the kind from an error chain, or KindInternal for
// anything unclassified.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validation(field, msg string) *Error { return &Error{Kind: KindValidation, Field: field, Message: msg} }
func authorization(msg string) *Error     { return &Error{Kind: KindAuthorization, Message: msg} }
func conflict(msg string) *Error          { return &Error{Kind: KindConflict, Message: msg} }
func capacity(msg string) *Error          { return &Error{Kind: KindCapacity, Message: msg} }
func schedule(msg string) *Error          { return &Error{Kind: KindSchedule, Message: msg} }
func notFound(msg string) *Error          { return &Error{Kind: KindNotFound, Message: msg} }
func invalidCode(msg string) *Error       { return &Error{Kind: KindInvalidCode, Message: msg} }
func notAvailable(msg string) *Error      { return &Error{Kind: KindNotAvailable, Message: msg} }
func internal(msg string) *Error          { return &Error{Kind: KindInternal, Message: msg} }
