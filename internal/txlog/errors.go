package txlog

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes transaction log errors.
type ErrorCode string

const (
	// ErrCodeStorage indicates a failed read or write against the
	// underlying database. Storage errors are propagated to the caller
	// immediately; retry policy belongs to the orchestration layer.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"

	// ErrCodeNotFound indicates a read for a transaction id that has no
	// row.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidState indicates a lifecycle call that the handler's
	// current status does not permit, such as committing twice.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error represents a transaction log failure with structured context.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// TransactionID identifies the affected transaction, if known.
	TransactionID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.TransactionID != "" {
		msg += fmt.Sprintf(" (transaction=%s)", e.TransactionID)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a NOT_FOUND error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == ErrCodeNotFound
}

// IsStorage returns true if the error is a STORAGE_ERROR.
// Uses errors.As to handle wrapped errors.
func IsStorage(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == ErrCodeStorage
}

// IsInvalidState returns true if the error is an INVALID_STATE error.
// Uses errors.As to handle wrapped errors.
func IsInvalidState(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == ErrCodeInvalidState
}

// newStorageError wraps a database failure with the operation that hit it.
func newStorageError(txID, op string, err error) *Error {
	return &Error{
		Code:          ErrCodeStorage,
		Message:       op,
		TransactionID: txID,
		Err:           err,
	}
}

// newNotFoundError reports a missing transaction row.
func newNotFoundError(txID string) *Error {
	return &Error{
		Code:          ErrCodeNotFound,
		Message:       "transaction not found",
		TransactionID: txID,
	}
}

// newInvalidStateError reports a lifecycle call illegal in the current
// status.
func newInvalidStateError(txID, action string, status Status) *Error {
	return &Error{
		Code:          ErrCodeInvalidState,
		Message:       fmt.Sprintf("cannot %s a %s transaction", action, status),
		TransactionID: txID,
	}
}
