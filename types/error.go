package types

import "fmt"

// ErrorCode represents a unified error code across the library.
type ErrorCode string

// Build-time error codes. Every violation is detected synchronously while
// constructing or validating a workflow; none are retried internally.
const (
	// ErrGrammar indicates the workflow name or version fails the
	// identifier grammar or contains the reserved scope separator.
	ErrGrammar ErrorCode = "GRAMMAR"
	// ErrDuplicateTask indicates two operators share a task ID.
	ErrDuplicateTask ErrorCode = "DUPLICATE_TASK"
	// ErrDanglingReference indicates a dependency, callback target,
	// switch case, switch default, or join member names a task ID that
	// does not exist in the workflow.
	ErrDanglingReference ErrorCode = "DANGLING_REFERENCE"
	// ErrCycle indicates the flattened dependency graph contains a cycle.
	ErrCycle ErrorCode = "CYCLE"
	// ErrInvalidJoin indicates a join operator has an empty member list.
	ErrInvalidJoin ErrorCode = "INVALID_JOIN"
)

// Decode-time error codes.
const (
	// ErrDecode indicates deserialization encountered an unrecognized
	// operator tag or a malformed field.
	ErrDecode ErrorCode = "DECODE"
)

// Error represents a structured error with code, message, and the
// identifiers involved in the violation.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	TaskID  string    `json:"task_id,omitempty"`
	Ref     string    `json:"ref,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.TaskID != "" && e.Ref != "":
		return fmt.Sprintf("[%s] %s (task=%s ref=%s)", e.Code, e.Message, e.TaskID, e.Ref)
	case e.TaskID != "":
		return fmt.Sprintf("[%s] %s (task=%s)", e.Code, e.Message, e.TaskID)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithTask records the offending task ID.
func (e *Error) WithTask(taskID string) *Error {
	e.TaskID = taskID
	return e
}

// WithRef records the unresolved reference target.
func (e *Error) WithRef(ref string) *Error {
	e.Ref = ref
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsCode checks whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
