package assist

import (
	"context"
	"errors"
	"fmt"
)

// Error codes for specific failure types
const (
	ErrCodeNetwork              = "NETWORK_ERROR"
	ErrCodeTimeout              = "EXECUTION_TIMEOUT"
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
	ErrCodeInvalidResponse      = "INVALID_RESPONSE"
	ErrCodeConfigurationMissing = "CONFIGURATION_MISSING"
	ErrCodeActionFailed         = "ACTION_FAILED"
	ErrCodeBusy                 = "DISPATCHER_BUSY"
	ErrCodeCancelled            = "EXECUTION_CANCELLED"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// Error is the typed failure returned by actions, collaborators and the dispatcher.
type Error struct {
	Code    string // A machine-readable error code (e.g., ErrCodeNetwork)
	Message string // A short human-readable message
	Stage   string // Where the error occurred, usually an action identifier
	Cause   error  // The underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error, allowing for error chaining.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns the string shown to the user. The cause is omitted.
func (e *Error) UserMessage() string {
	return e.Message
}

// NewError creates a new Error.
func NewError(code, stage, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsAssistError reports whether err carries a typed Error.
func IsAssistError(err error) bool {
	_, ok := AsError(err)
	return ok
}

// HasCode reports whether any typed Error in err's chain has the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// UserMessage extracts the human-readable message for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.UserMessage()
	}
	return err.Error()
}

// Specific error constructors

func NewNetworkError(stage string, cause error) *Error {
	return NewError(ErrCodeNetwork, stage, "network request failed", cause)
}

func NewTimeoutError(stage string, cause error) *Error {
	return NewError(ErrCodeTimeout, stage, "the request timed out", cause)
}

func NewPermissionDeniedError(stage, resource string, cause error) *Error {
	return NewError(ErrCodePermissionDenied, stage, fmt.Sprintf("access to %s was denied", resource), cause)
}

func NewInvalidResponseError(stage, message string, cause error) *Error {
	return NewError(ErrCodeInvalidResponse, stage, message, cause)
}

func NewConfigurationMissingError(stage, message string) *Error {
	return NewError(ErrCodeConfigurationMissing, stage, message, nil)
}

// NewActionError wraps cause with the failing action's identifier. A typed
// cause keeps its own short message so the user sees what actually broke.
func NewActionError(actionID string, cause error) *Error {
	msg := fmt.Sprintf("%s failed", actionID)
	if e, ok := AsError(cause); ok && e.Message != "" {
		msg = fmt.Sprintf("%s failed: %s", actionID, e.Message)
	}
	return NewError(ErrCodeActionFailed, actionID, msg, cause)
}

func NewBusyError(actionID string) *Error {
	return NewError(ErrCodeBusy, actionID, "another action is still running", nil)
}

func NewCancelledError(stage string, cause error) *Error {
	msg := "execution cancelled"
	if cause != nil && !errors.Is(cause, context.Canceled) {
		msg = fmt.Sprintf("execution cancelled: %v", cause)
	}
	return NewError(ErrCodeCancelled, stage, msg, cause)
}

func NewValidationError(stage, message string, cause error) *Error {
	return NewError(ErrCodeValidation, stage, message, cause)
}

func NewInternalError(stage, message string, cause error) *Error {
	return NewError(ErrCodeInternal, stage, message, cause)
}

// FromContext converts a context failure into the matching typed error.
// It returns nil when ctxErr is nil.
func FromContext(stage string, ctxErr error) *Error {
	switch {
	case ctxErr == nil:
		return nil
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return NewTimeoutError(stage, ctxErr)
	default:
		return NewCancelledError(stage, ctxErr)
	}
}
