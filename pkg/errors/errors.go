package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the pipeline stage or condition an error belongs to
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeHTTPStatus ErrorType = "http_status"
	ErrorTypeDecompress ErrorType = "decompress"
	ErrorTypeRead       ErrorType = "read"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeStructure  ErrorType = "structure"
	ErrorTypeWrite      ErrorType = "write"
	ErrorTypeLocked     ErrorType = "locked"
	ErrorTypeExport     ErrorType = "export"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a typed pipeline error
type Error struct {
	Type ErrorType
	Op   string
	Path string
	Code int
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error for the given operation
func New(errType ErrorType, op string, err error) *Error {
	return &Error{Type: errType, Op: op, Err: err}
}

// WithPath attaches the filesystem path the error relates to
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// TypeOf returns the ErrorType of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given ErrorType
func Is(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// ExitCode maps a run result to a process exit status.
// Every failure, whatever its stage, aborts the run with status 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
