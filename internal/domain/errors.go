package domain

import "fmt"

// ValidationError marks malformed input or configuration: a bad batch size,
// a document property with the wrong underlying type, an exceeded task cap.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RemoteAPIError wraps a failed call to the document store or a generation
// provider.
type RemoteAPIError struct {
	Op  string
	Err error
}

func (e *RemoteAPIError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *RemoteAPIError) Unwrap() error { return e.Err }

// StorageError wraps a failed relational-store call, including failures
// inside a write transaction.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
