package core

// errors.go maps internal errors to user-facing messages for the API
// layer. Technical detail stays in the logs; clients get a stable code
// plus a suggestion of what to do next.

import (
	"errors"
	"fmt"
)

// ErrOperationNotFound is returned for an unknown operation id.
var ErrOperationNotFound = errors.New("bulk operation not found")

// ErrNoIdentifiers is returned when the uploaded input stream holds no
// usable identifiers.
var ErrNoIdentifiers = errors.New("identifier file contains no identifiers")

// ErrUnknownEntityKind is returned for an entity type with no
// registered adapter.
var ErrUnknownEntityKind = errors.New("unknown entity type")

// FatalError marks a failure that must fail the whole operation
// instead of skipping a single record.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err so the pipeline aborts the operation.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// UserMessage is a client-safe rendering of an error.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError translates an error into a UserMessage.
func MapError(err error) UserMessage {
	switch {
	case errors.Is(err, ErrOperationNotFound):
		return UserMessage{
			Code:    "OPERATION_NOT_FOUND",
			Message: "The bulk operation does not exist.",
			Action:  "Check the operation id and try again.",
		}
	case errors.Is(err, ErrNoIdentifiers):
		return UserMessage{
			Code:    "EMPTY_IDENTIFIER_FILE",
			Message: "The uploaded file contains no identifiers.",
			Action:  "Upload a file with one identifier per line.",
		}
	case errors.Is(err, ErrUnknownEntityKind):
		return UserMessage{
			Code:    "UNKNOWN_ENTITY_TYPE",
			Message: "The requested entity type is not supported.",
			Action:  "Use one of: USER, ITEM, HOLDINGS_RECORD, INSTANCE.",
		}
	case errors.Is(err, ErrTooManyOperations):
		return UserMessage{
			Code:    "TOO_MANY_OPERATIONS",
			Message: "Too many bulk operations are running.",
			Action:  "Wait for a running operation to finish and retry.",
		}
	}
	return UserMessage{
		Code:    "INTERNAL_ERROR",
		Message: fmt.Sprintf("The request failed: %v", err),
	}
}
