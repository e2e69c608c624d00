// Package errors classifies monitor failures and defines local api error bodies.
package errors

import (
	stderrors "errors"
)

const (
	ErrService    = "ERR_SERVICE"
	ErrNotFound   = "ERR_NOT_FOUND"
	ErrBadRequest = "ERR_BAD_REQUEST"
)

// APIError .
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error .
func (err APIError) Error() string {
	return err.Message
}

// NewNotFoundError .
func NewNotFoundError() APIError {
	return APIError{
		Code:    ErrNotFound,
		Message: "Not Found",
	}
}

// NewServiceError .
func NewServiceError(msg string) APIError {
	return APIError{
		Code:    ErrService,
		Message: msg,
	}
}

// Severity tells the loop whether a failure ends the process.
type Severity int

const (
	// SeverityRecoverable failures are logged and the loop continues.
	SeverityRecoverable Severity = iota
	// SeverityFatal failures terminate the process.
	SeverityFatal
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "recoverable"
}

// ClassifiedError carries a failure with its severity and the operation that produced it.
type ClassifiedError struct {
	Op       string
	Severity Severity
	Err      error
}

func (e *ClassifiedError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap .
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors.Cause see through the classification.
func (e *ClassifiedError) Cause() error {
	return e.Err
}

// Recoverable marks err as recoverable. A nil err stays nil.
func Recoverable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Op: op, Severity: SeverityRecoverable, Err: err}
}

// Fatal marks err as fatal. A nil err stays nil.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Op: op, Severity: SeverityFatal, Err: err}
}

// IsFatal reports whether any error in err's chain was classified fatal. Unclassified errors are not fatal.
func IsFatal(err error) bool {
	var ce *ClassifiedError
	for err != nil {
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Severity == SeverityFatal {
			return true
		}
		err = ce.Err
	}
	return false
}
