package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the lifecycle service reports.
type ErrorKind string

// Failure kinds. Callers map these onto transport specific codes.
const (
	KindNotFound             ErrorKind = "not_found"
	KindInvalidStatus        ErrorKind = "invalid_status"
	KindInvalidInput         ErrorKind = "invalid_input"
	KindIllegalTransition    ErrorKind = "illegal_transition"
	KindDuplicateApplication ErrorKind = "duplicate_application"
	KindRequesterNotFound    ErrorKind = "requester_not_found"
	KindProgramNotOpen       ErrorKind = "program_not_open"
	KindStoreError           ErrorKind = "store_error"
	KindNotificationError    ErrorKind = "notification_error"
)

// Error is the typed failure returned across the service boundary. Current and
// Requested are populated for illegal transitions, Field for validation errors.
type Error struct {
	Kind          ErrorKind
	Message       string
	Field         string
	ApplicationID string
	Current       Status
	Requested     Status
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by err, or "" when err is not a lifecycle error.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func notFoundError(id string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("application %s not found", id), ApplicationID: id, Err: err}
}

func invalidStatusError(raw string) *Error {
	return &Error{Kind: KindInvalidStatus, Message: fmt.Sprintf("unknown status %q", raw), Field: "status"}
}

func invalidInputError(field, message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Field: field}
}

func illegalTransitionError(id string, current, requested Status) *Error {
	return &Error{
		Kind:          KindIllegalTransition,
		Message:       fmt.Sprintf("cannot move application %s from %s to %s", id, current, requested),
		ApplicationID: id,
		Current:       current,
		Requested:     requested,
	}
}

func storeError(op string, err error) *Error {
	return &Error{Kind: KindStoreError, Message: op, Err: err}
}
