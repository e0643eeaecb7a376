package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError for the CLI and HTTP layers.
type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	ErrCodeUpstream         ErrorCode = "UPSTREAM_ERROR"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// DomainError carries a code, a human message and optionally the error
// that caused it.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to err. Wrapping nil returns nil.
func Wrap(code ErrorCode, message string, err error) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first DomainError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

var (
	ErrEmptyQuery     = NewDomainError(ErrCodeValidation, "query text cannot be empty")
	ErrNoDocuments    = NewDomainError(ErrCodeValidation, "no documents found")
	ErrInvalidChunker = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")

	ErrStoreNotFound = NewDomainError(ErrCodeNotFound, "vector store not found")

	ErrBackupUnsupported = NewDomainError(ErrCodeInvalidOperation, "backup is not supported for this store backend")
)
